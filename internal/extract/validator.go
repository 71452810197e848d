package extract

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/Rahma-78/ai-interview-prep-sub000/internal/domain"
)

// Validator checks uploaded resumes before any model call is made, so a bad
// upload fails the run without spending provider quota.
type Validator struct {
	maxSizeBytes      int64
	allowedExtensions map[string]struct{}
}

// NewValidator creates a Validator. Extensions are matched case-insensitively
// and must include the leading dot.
func NewValidator(maxSizeBytes int64, allowedExtensions []string) *Validator {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &Validator{maxSizeBytes: maxSizeBytes, allowedExtensions: allowed}
}

// Validate checks the filename, size and content of an uploaded resume.
// Failures are ValidationErrors, which classify as fatal: the run is rejected
// before it starts.
func (v *Validator) Validate(filename string, content []byte) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		return domain.NewValidationError("resume", "file has no extension")
	}
	if _, ok := v.allowedExtensions[ext]; !ok {
		return domain.NewValidationError("resume", fmt.Sprintf("unsupported file type %q", ext))
	}

	if int64(len(content)) > v.maxSizeBytes {
		return domain.NewValidationError("resume",
			fmt.Sprintf("file exceeds maximum size of %d bytes", v.maxSizeBytes))
	}
	if len(strings.TrimSpace(string(content))) == 0 {
		return domain.NewValidationError("resume", "file is empty")
	}

	// Extension says text; make sure the bytes agree. Catches binaries
	// renamed to .txt before they reach a prompt.
	mtype := mimetype.Detect(content)
	if !isTextMIME(mtype) {
		return domain.NewValidationError("resume",
			fmt.Sprintf("content type %q is not text", mtype.String()))
	}

	return nil
}

// isTextMIME reports whether the detected type is text/* or a descendant.
func isTextMIME(m *mimetype.MIME) bool {
	for cur := m; cur != nil; cur = cur.Parent() {
		if strings.HasPrefix(cur.String(), "text/") {
			return true
		}
	}
	return false
}
