package policy

import (
	"testing"

	"github.com/prn-tf/meridian-accounts/internal/domain"
)

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"simple", "jsmith", true},
		{"with digits", "user2", true},
		{"with underscore", "test_user", true},
		{"with dot", "first.last", true},
		{"internal hyphen", "foo-bar", true},
		{"punctuation heavy", "a!b#c", true},
		{"empty", "", false},
		{"leading hyphen", "-foo", false},
		{"contains colon", "foo:o", false},
		{"contains space", "foo o", false},
		{"leading space", " foo", false},
		{"leading tab", "\tfoo", false},
		{"trailing space", "foo ", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidIdentifier(tt.value); got != tt.want {
				t.Errorf("ValidIdentifier(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestValidateIdentifier(t *testing.T) {
	t.Run("valid name adds nothing", func(t *testing.T) {
		fe := domain.FieldErrors{}
		ValidateIdentifier("jsmith", "username", fe)
		if !fe.Empty() {
			t.Errorf("expected no field errors, got %v", fe)
		}
	})

	t.Run("empty name is a required-field error", func(t *testing.T) {
		fe := domain.FieldErrors{}
		ValidateIdentifier("", "username", fe)
		if len(fe["username"]) != 1 || fe["username"][0] != MsgFieldRequired {
			t.Errorf("expected required-field error, got %v", fe)
		}
	})

	t.Run("bad name echoes the value", func(t *testing.T) {
		fe := domain.FieldErrors{}
		ValidateIdentifier("foo:o", "username", fe)
		if len(fe["username"]) != 1 || fe["username"][0] != "foo:o is not allowed" {
			t.Errorf("expected not-allowed error, got %v", fe)
		}
	})

	t.Run("group names use their own field", func(t *testing.T) {
		fe := domain.FieldErrors{}
		ValidateIdentifier("-admins", "name", fe)
		if len(fe["name"]) != 1 {
			t.Errorf("expected error on field name, got %v", fe)
		}
	})
}
