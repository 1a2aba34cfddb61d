package schemaname

import "testing"

func TestValidate(t *testing.T) {
	valid := []string{"tenant_ka", "tenant_mp", "common_schema", "_private", "t1"}
	for _, name := range valid {
		if err := Validate(name); err != nil {
			t.Fatalf("Validate(%q) unexpected error: %v", name, err)
		}
	}

	invalid := []string{"", "1tenant", "tenant-ka", "tenant ka", "Tenant_KA", `tenant";drop`, "tenant_ka;"}
	for _, name := range invalid {
		if err := Validate(name); err == nil {
			t.Fatalf("Validate(%q) expected error, got nil", name)
		}
	}
}

func TestForStateCode(t *testing.T) {
	name, err := ForStateCode(" KA ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "tenant_ka" {
		t.Fatalf("expected tenant_ka, got %q", name)
	}

	if _, err := ForStateCode("K A"); err == nil {
		t.Fatal("expected error for state code with spaces")
	}
	if _, err := ForStateCode(""); err == nil {
		t.Fatal("expected error for empty state code")
	}
}
