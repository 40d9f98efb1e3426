package schema

import (
	"encoding/json"
	"testing"
)

type profile struct {
	Bio     string `json:"bio" desc:"A short bio" default:"null"`
	Website string `json:"website" desc:"A personal website"`
}

func (profile) Description() string { return "A user profile" }

type account struct {
	Username string   `json:"username" desc:"The username" constraints:"required,min=3,max=50"`
	Age      *int     `json:"age" desc:"The age in years" default:"null" constraints:"min=0"`
	Tags     []string `json:"tags" desc:"Free-form labels" default:"[]"`
	Profile  profile  `json:"profile"`
	Internal string   `json:"-"`
	hidden   string
}

func (account) Description() string { return "A user account" }

type linkedNode struct {
	Label string      `json:"label" desc:"The node label"`
	Next  *linkedNode `json:"next" desc:"The next node" default:"null"`
}

func (linkedNode) Description() string { return "A node in a linked list" }

func TestDescribe_Fields(t *testing.T) {
	d, err := Describe(account{})
	if err != nil {
		t.Fatalf("schema:describe_test - unexpected error: %v", err)
	}
	if d.Description != "A user account" {
		t.Errorf("schema:describe_test - Description = %q, want %q", d.Description, "A user account")
	}

	username, ok := d.Fields["username"]
	if !ok {
		t.Fatal("schema:describe_test - missing username field")
	}
	if username.Type != "string" {
		t.Errorf("schema:describe_test - username.Type = %q, want %q", username.Type, "string")
	}
	if username.Description != "The username" {
		t.Errorf("schema:describe_test - username.Description = %q", username.Description)
	}
	if username.HasDefault {
		t.Error("schema:describe_test - username should not declare a default")
	}

	age, ok := d.Fields["age"]
	if !ok {
		t.Fatal("schema:describe_test - missing age field")
	}
	if age.Type != "integer" {
		t.Errorf("schema:describe_test - age.Type = %q, want %q", age.Type, "integer")
	}
	if !age.HasDefault || string(age.Default) != "null" {
		t.Errorf("schema:describe_test - age default = %v %s, want declared null", age.HasDefault, age.Default)
	}

	tags, ok := d.Fields["tags"]
	if !ok {
		t.Fatal("schema:describe_test - missing tags field")
	}
	if tags.Type != "array" {
		t.Errorf("schema:describe_test - tags.Type = %q, want %q", tags.Type, "array")
	}
	if !tags.HasDefault || string(tags.Default) != "[]" {
		t.Errorf("schema:describe_test - tags default = %s, want []", tags.Default)
	}

	if _, ok := d.Fields["Internal"]; ok {
		t.Error("schema:describe_test - json:\"-\" field should be skipped")
	}
	if _, ok := d.Fields["hidden"]; ok {
		t.Error("schema:describe_test - unexported field should be skipped")
	}
}

func TestDescribe_NestedDescribable(t *testing.T) {
	d, err := Describe(account{})
	if err != nil {
		t.Fatalf("schema:describe_test - unexpected error: %v", err)
	}

	nested, ok := d.Fields["profile"]
	if !ok {
		t.Fatal("schema:describe_test - missing profile field")
	}
	if nested.Description != "A user profile" {
		t.Errorf("schema:describe_test - profile.Description = %q", nested.Description)
	}

	// The nested subtree must match describing the nested type directly.
	direct, err := Describe(profile{})
	if err != nil {
		t.Fatalf("schema:describe_test - unexpected error: %v", err)
	}
	got, _ := json.Marshal(nested.Fields)
	want, _ := json.Marshal(direct.Fields)
	if string(got) != string(want) {
		t.Errorf("schema:describe_test - nested subtree = %s, want %s", got, want)
	}
}

func TestDescribe_SelfReferential(t *testing.T) {
	d, err := Describe(linkedNode{})
	if err != nil {
		t.Fatalf("schema:describe_test - unexpected error: %v", err)
	}
	next, ok := d.Fields["next"]
	if !ok {
		t.Fatal("schema:describe_test - missing next field")
	}
	// Recursion terminates with a leaf entry instead of expanding forever.
	if len(next.Fields) != 0 {
		t.Errorf("schema:describe_test - self-referential field should not recurse, got %d fields", len(next.Fields))
	}
}

func TestFieldInfo_MarshalJSON_DefaultPresence(t *testing.T) {
	d, err := Describe(account{})
	if err != nil {
		t.Fatalf("schema:describe_test - unexpected error: %v", err)
	}

	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("schema:describe_test - marshal descriptor: %v", err)
	}

	var decoded struct {
		Fields map[string]map[string]json.RawMessage `json:"fields"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("schema:describe_test - unmarshal descriptor: %v", err)
	}

	if _, ok := decoded.Fields["username"]["default"]; ok {
		t.Error("schema:describe_test - username must not emit a default key")
	}
	if def, ok := decoded.Fields["age"]["default"]; !ok {
		t.Error("schema:describe_test - age must emit a default key")
	} else if string(def) != "null" {
		t.Errorf("schema:describe_test - age default = %s, want null", def)
	}
}

func TestDescribe_Deterministic(t *testing.T) {
	first, err := Describe(account{})
	if err != nil {
		t.Fatalf("schema:describe_test - unexpected error: %v", err)
	}
	second, err := Describe(account{})
	if err != nil {
		t.Fatalf("schema:describe_test - unexpected error: %v", err)
	}
	a, _ := json.Marshal(first)
	b, _ := json.Marshal(second)
	if string(a) != string(b) {
		t.Error("schema:describe_test - Describe is not deterministic")
	}
}
