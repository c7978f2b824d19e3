package validation

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
)

const (
	MsgNameRequired    = "Name is required"
	MsgNameTooLong     = "Name must be at most 120 characters"
	MsgSubjectTooLong  = "Subject must be at most 200 characters"
	MsgMessageRequired = "Message is required"
	MsgMessageLength   = "Message must be between 10 and 5000 characters"
)

type contactForm struct {
	Name    string
	Email   string
	Subject string
	Message string
}

var contactFieldOrder = []string{"Name", "Email", "Subject", "Message"}

// ValidateContact returns every rule req violates, or nil.
func ValidateContact(req model.ContactRequest) []string {
	f := contactForm{
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Subject: strings.TrimSpace(req.Subject),
		Message: strings.TrimSpace(req.Message),
	}

	err := validation.ValidateStruct(&f,
		validation.Field(&f.Name,
			validation.Required.Error(MsgNameRequired),
			validation.RuneLength(0, 120).Error(MsgNameTooLong),
		),
		validation.Field(&f.Email,
			validation.Required.Error(MsgEmailRequired),
			validation.Match(emailPattern).Error(MsgEmailInvalid),
		),
		validation.Field(&f.Subject, validation.RuneLength(0, 200).Error(MsgSubjectTooLong)),
		validation.Field(&f.Message,
			validation.Required.Error(MsgMessageRequired),
			validation.RuneLength(10, 5000).Error(MsgMessageLength),
		),
	)
	return flatten(err, contactFieldOrder)
}
