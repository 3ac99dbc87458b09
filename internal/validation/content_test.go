package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateContent(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{"Valid", "hello world", false},
		{"Blank", "   ", true},
		{"Empty", "", true},
		{"At Max", strings.Repeat("x", MaxCommentLength), false},
		{"Over Max", strings.Repeat("x", MaxCommentLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateContent("content", tt.content, MaxCommentLength)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateProfile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		bio     string
		website string
		avatar  string
		wantErr bool
	}{
		{"All Empty", "", "", "", false},
		{"Valid", "hi", "https://example.com", "http://cdn.example.com/a.png", false},
		{"Bio Too Long", strings.Repeat("b", MaxBioLength+1), "", "", true},
		{"Website Not URL", "", "example", "", true},
		{"Avatar Bad Scheme", "", "", "javascript:alert(1)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfile(tt.bio, "", tt.website, tt.avatar)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
