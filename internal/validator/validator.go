package validator

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/darkodi/sitebuilder/internal/errors"
)

// DefaultMaxPromptLength is the longest brief accepted, in characters
const DefaultMaxPromptLength = 2000

var (
	siteIDPattern        = regexp.MustCompile(`^[a-zA-Z0-9]+$`)
	screenshotKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_.]+$`)
)

// PromptValidator validates build briefs and path identifiers
type PromptValidator struct {
	validate  *validator.Validate
	maxLength int
}

// NewPromptValidator creates a validator with default settings
func NewPromptValidator() *PromptValidator {
	return &PromptValidator{
		validate:  validator.New(),
		maxLength: DefaultMaxPromptLength,
	}
}

// ValidatePrompt trims raw and checks it is present and short enough.
// It returns the trimmed brief.
func (v *PromptValidator) ValidatePrompt(raw string) (string, *errors.AppError) {
	prompt := strings.TrimSpace(raw)

	// Check if empty
	if err := v.validate.Var(prompt, "required"); err != nil {
		return "", errors.PromptRequired()
	}

	// Check length, counted in characters rather than bytes
	if err := v.validate.Var(prompt, "max="+strconv.Itoa(v.maxLength)); err != nil {
		return "", errors.PromptTooLong()
	}

	return prompt, nil
}

// ValidateSiteID checks a site identifier taken from a URL path
func (v *PromptValidator) ValidateSiteID(id string) *errors.AppError {
	if id == "" || len(id) > 64 || !siteIDPattern.MatchString(id) {
		return errors.NotFound()
	}
	return nil
}

// ValidateScreenshotKey checks a screenshot file name taken from a URL path
func (v *PromptValidator) ValidateScreenshotKey(key string) *errors.AppError {
	if key == "" || len(key) > 128 || strings.Contains(key, "..") || !screenshotKeyPattern.MatchString(key) {
		return errors.NotFound()
	}
	return nil
}

// ============================================================
// CONFIGURATION METHODS
// ============================================================

// WithMaxLength sets the maximum prompt length
func (v *PromptValidator) WithMaxLength(length int) *PromptValidator {
	v.maxLength = length
	return v
}
