package extract

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
)

func newTestValidator() *Validator {
	return NewValidator(1024, []string{".txt", ".md"})
}

func TestValidateAccepts(t *testing.T) {
	v := newTestValidator()

	assert.NoError(t, v.Validate("resume.txt", []byte("5 years of Go and Kafka")))
	assert.NoError(t, v.Validate("resume.MD", []byte("# Jane Doe\n\nPlatform engineer")))
}

func TestValidateRejects(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name     string
		filename string
		content  []byte
		wantMsg  string
	}{
		{"no extension", "resume", []byte("text"), "no extension"},
		{"wrong extension", "resume.exe", []byte("text"), "unsupported file type"},
		{"too large", "resume.txt", bytes.Repeat([]byte("a"), 2048), "maximum size"},
		{"empty", "resume.txt", []byte("   \n\t "), "empty"},
		{"binary content", "resume.txt", []byte{0x7f, 'E', 'L', 'F', 0x02, 0x01, 0x01, 0x00}, "not text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.filename, tt.content)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
