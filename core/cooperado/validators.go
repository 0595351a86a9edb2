package cooperado

import (
	"fmt"
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/mutamba/coopvida/core"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenTag  = "pwdminlen"
	pwdMinLenText = fmt.Sprintf("password must contain at least %d characters", pwdMinLen)

	pwdNoSpaceTag  = "pwdnospace"
	pwdNoSpaceText = "password must not contain whitespace"

	pwdNotAllNumTag  = "pwdnotallnum"
	pwdNotAllNumText = "password cannot be entirely numeric"

	pwdMaxSim      = .7
	pwdAttrSimTag  = "pwdtoosim"
	pwdAttrSimText = "password cannot be similar to your name or email"
)

// InitValidators registers this package's custom password validators.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	validate.RegisterStructValidation(changeSenhaStructValidation, ChangeSenha{})
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
	core.RegisterCustomTranslation(validate, translator, pwdNoSpaceTag, pwdNoSpaceText)
	core.RegisterCustomTranslation(validate, translator, pwdNotAllNumTag, pwdNotAllNumText)
	core.RegisterCustomTranslation(validate, translator, pwdAttrSimTag, pwdAttrSimText)
}

// ChangeSenha is the portal password-change payload.
type ChangeSenha struct {
	SenhaAtual       string `json:"senha_atual" validate:"required"`
	NovaSenha        string `json:"nova_senha" validate:"required"`
	NovaSenhaConfirm string `json:"nova_senha_confirm" validate:"required,eqfield=NovaSenha"`

	// attributes the new password is checked for similarity against
	NomeCompleto string `json:"-"`
	Email        string `json:"-"`
}

func (cs *ChangeSenha) Validate(validate *validator.Validate) error {
	return validate.Struct(cs)
}

func changeSenhaStructValidation(sl validator.StructLevel) {
	cs := sl.Current().Interface().(ChangeSenha)
	validatePassword(sl, cs.NovaSenha, "NovaSenha", "nova_senha", cs.NomeCompleto, cs.Email)
}

func validatePassword(sl validator.StructLevel, pwd, fldName, fldTag string, attrs ...string) {
	if pwd == "" {
		return
	}
	if len(pwd) < pwdMinLen {
		sl.ReportError(pwd, fldName, fldTag, pwdMinLenTag, "")
	}
	if strings.IndexFunc(pwd, unicode.IsSpace) >= 0 {
		sl.ReportError(pwd, fldName, fldTag, pwdNoSpaceTag, "")
	}
	if isAllNumeric(pwd) {
		sl.ReportError(pwd, fldName, fldTag, pwdNotAllNumTag, "")
	}
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		matcher := difflib.NewMatcher(
			difflib.SplitLines(strings.ToLower(pwd)),
			difflib.SplitLines(strings.ToLower(attr)),
		)
		if matcher.QuickRatio() >= pwdMaxSim {
			sl.ReportError(pwd, fldName, fldTag, pwdAttrSimTag, "")
			break
		}
	}
}

func isAllNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
