package i18n

import (
	"github.com/go-playground/locales"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/fr"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	fr_translations "github.com/go-playground/validator/v10/translations/fr"
	"github.com/vidinfra/docvault/internal/config"
	ierr "github.com/vidinfra/docvault/internal/errors"
	"golang.org/x/text/language"
)

// Translator turns error codes and validation failures into messages in the
// caller's language.
type Translator struct {
	uni           *ut.UniversalTranslator
	matcher       language.Matcher
	supported     []string
	defaultLocale string
}

type localeSetup struct {
	tag      language.Tag
	locale   locales.Translator
	register func(*validator.Validate, ut.Translator) error
}

var setups = []localeSetup{
	{tag: language.English, locale: en.New(), register: en_translations.RegisterDefaultTranslations},
	{tag: language.French, locale: fr.New(), register: fr_translations.RegisterDefaultTranslations},
}

// NewTranslator registers the catalog and the validator messages for every
// supported locale. The first supported locale is the fallback.
func NewTranslator(cfg *config.Configuration, validate *validator.Validate) (*Translator, error) {
	fallback := setups[0].locale
	all := make([]locales.Translator, 0, len(setups))
	tags := make([]language.Tag, 0, len(setups))
	supported := make([]string, 0, len(setups))
	for _, s := range setups {
		all = append(all, s.locale)
		tags = append(tags, s.tag)
		supported = append(supported, s.locale.Locale())
	}

	t := &Translator{
		uni:           ut.New(fallback, all...),
		matcher:       language.NewMatcher(tags),
		supported:     supported,
		defaultLocale: fallback.Locale(),
	}
	if cfg != nil && cfg.I18n.DefaultLocale != "" {
		t.defaultLocale = cfg.I18n.DefaultLocale
	}

	for _, s := range setups {
		trans, _ := t.uni.GetTranslator(s.locale.Locale())
		for code, text := range catalog[s.locale.Locale()] {
			if err := trans.Add(code, text, true); err != nil {
				return nil, ierr.WithError(err).
					WithHintf("Failed to register %s message for %s", s.locale.Locale(), code).
					Mark(ierr.ErrSystem)
			}
		}
		if validate == nil {
			continue
		}
		if err := s.register(validate, trans); err != nil {
			return nil, ierr.WithError(err).
				WithHintf("Failed to register %s validation messages", s.locale.Locale()).
				Mark(ierr.ErrSystem)
		}
		for tag, text := range tagCatalog[s.locale.Locale()] {
			if err := registerTag(validate, trans, tag, text); err != nil {
				return nil, err
			}
		}
	}

	return t, nil
}

func registerTag(validate *validator.Validate, trans ut.Translator, tag, text string) error {
	return validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, text, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			msg, err := ut.T(tag, fe.Field())
			if err != nil {
				return fe.Error()
			}
			return msg
		},
	)
}

// DefaultLocale is used when negotiation finds nothing better
func (t *Translator) DefaultLocale() string {
	return t.defaultLocale
}

// Negotiate picks the best supported locale for an Accept-Language header
func (t *Translator) Negotiate(acceptLanguage string) string {
	if acceptLanguage == "" {
		return t.defaultLocale
	}
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return t.defaultLocale
	}
	_, idx, confidence := t.matcher.Match(tags...)
	if confidence == language.No {
		return t.defaultLocale
	}
	return t.supported[idx]
}

func (t *Translator) translator(locale string) ut.Translator {
	if trans, found := t.uni.FindTranslator(locale, t.defaultLocale); found {
		return trans
	}
	return t.uni.GetFallback()
}

// Translate returns the localized message for the error's code, or an empty
// string when the catalog has none.
func (t *Translator) Translate(err error, locale string) string {
	if err == nil {
		return ""
	}
	msg, tErr := t.translator(locale).T(ierr.Code(err))
	if tErr != nil {
		return ""
	}
	return msg
}

// TranslateValidation returns localized per-field messages when err carries
// validator failures.
func (t *Translator) TranslateValidation(err error, locale string) map[string]string {
	var validateErrs validator.ValidationErrors
	if !ierr.As(err, &validateErrs) {
		return nil
	}
	trans := t.translator(locale)
	out := make(map[string]string, len(validateErrs))
	for _, fe := range validateErrs {
		out[fe.Field()] = fe.Translate(trans)
	}
	return out
}
