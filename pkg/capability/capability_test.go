package capability

import (
	"encoding/json"
	"testing"
)

func TestResult_MarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		res  Result
		want string
	}{
		{
			name: "unset message and fields serialize as null",
			res:  Result{StatusCode: 404},
			want: `{"status_code":404,"message":null,"fields":null}`,
		},
		{
			name: "message and fields present",
			res:  Result{StatusCode: 200, Message: "ok", Fields: map[string]any{"n": 1}},
			want: `{"status_code":200,"message":"ok","fields":{"n":1}}`,
		},
		{
			name: "scalar fields",
			res:  Result{StatusCode: 200, Message: "counted", Fields: 3},
			want: `{"status_code":200,"message":"counted","fields":3}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.res)
			if err != nil {
				t.Fatalf("capability:capability_test - marshal: %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("capability:capability_test - payload = %s, want %s", data, tt.want)
			}
		})
	}
}

func TestResult_UnmarshalNullMessage(t *testing.T) {
	var res Result
	if err := json.Unmarshal([]byte(`{"status_code":500,"message":null,"fields":null}`), &res); err != nil {
		t.Fatalf("capability:capability_test - unmarshal: %v", err)
	}
	if res.StatusCode != 500 || res.Message != "" || res.Fields != nil {
		t.Errorf("capability:capability_test - result = %+v", res)
	}
}
