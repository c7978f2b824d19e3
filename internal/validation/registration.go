// Package validation checks registration and contact payloads.
//
// Validators are pure: they never touch I/O and always report every
// violated rule, so the form can surface all problems at once.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
)

// Festival categories.
const (
	CategoryEsports          = "esports"
	CategoryHackathon        = "hackathon"
	CategoryWorkshops        = "workshops"
	CategoryRobotics         = "robotics"
	CategorySpeedProgramming = "speed-programming"
	CategoryTechQuiz         = "tech-quiz"
)

// Categories lists every accepted main category.
var Categories = []string{
	CategoryEsports,
	CategoryHackathon,
	CategoryWorkshops,
	CategoryRobotics,
	CategorySpeedProgramming,
	CategoryTechQuiz,
}

var (
	subCategoryRequired = map[string]bool{
		CategoryEsports:   true,
		CategoryHackathon: true,
		CategoryWorkshops: true,
	}
	teamRequired = map[string]bool{
		CategoryEsports:   true,
		CategoryHackathon: true,
		CategoryRobotics:  true,
	}
)

// CountryCode is the optional prefix accepted on phone numbers.
const CountryCode = "+92"

var (
	emailPattern       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern       = regexp.MustCompile(`^(` + regexp.QuoteMeta(CountryCode) + `)?[0-9]{10,11}$`)
	institutionPattern = regexp.MustCompile(`^[\p{L}\s&.,'\-]+$`)
)

// Error messages, one per rule.
const (
	MsgFullNameRequired    = "Full name is required"
	MsgEmailRequired       = "Email is required"
	MsgEmailInvalid        = "Please enter a valid email address"
	MsgPhoneRequired       = "Phone number is required"
	MsgPhoneInvalid        = "Please enter a valid phone number"
	MsgUniversityRequired  = "University is required"
	MsgUniversityInvalid   = "University name can only contain letters, spaces and & . , ' -"
	MsgDepartmentInvalid   = "Department can only contain letters, spaces and & . , ' -"
	MsgCategoryRequired    = "Main category is required"
	MsgCategoryInvalid     = "Please select a valid category"
	MsgSubCategoryRequired = "Sub-category is required for the selected category"
	MsgTeamNameRequired    = "Team name is required for team events"
	MsgTeamMembersRequired = "Team members are required for team events"
	MsgTermsRequired       = "You must accept the terms and conditions"
)

// registrationForm is the normalized view the rules run against.
type registrationForm struct {
	FullName      string
	Email         string
	PhoneNumber   string
	University    string
	Department    string
	MainCategory  string
	SubCategory   string
	TeamName      string
	TeamMembers   string
	TermsAccepted bool
}

// fieldOrder fixes the order errors are reported in.
var fieldOrder = []string{
	"FullName",
	"Email",
	"PhoneNumber",
	"University",
	"Department",
	"MainCategory",
	"SubCategory",
	"TeamName",
	"TeamMembers",
	"TermsAccepted",
}

// NormalizePhone strips all Unicode whitespace from a phone number,
// including no-break spaces pasted from documents.
func NormalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}

// IsSubCategoryRequired reports whether category needs a sub-category.
func IsSubCategoryRequired(category string) bool { return subCategoryRequired[category] }

// IsTeamRequired reports whether category is a team event.
func IsTeamRequired(category string) bool { return teamRequired[category] }

// ValidateRegistration returns every rule req violates, or nil.
func ValidateRegistration(req model.RegistrationRequest) []string {
	f := registrationForm{
		FullName:      strings.TrimSpace(req.FullName),
		Email:         strings.TrimSpace(req.Email),
		PhoneNumber:   NormalizePhone(req.PhoneNumber),
		University:    strings.TrimSpace(req.University),
		Department:    strings.TrimSpace(req.Department),
		MainCategory:  strings.TrimSpace(req.MainCategory),
		SubCategory:   strings.TrimSpace(req.SubCategory),
		TeamName:      strings.TrimSpace(req.TeamName),
		TeamMembers:   strings.TrimSpace(req.TeamMembers),
		TermsAccepted: req.TermsAccepted,
	}

	var subRules, teamNameRules, teamMembersRules []validation.Rule
	if subCategoryRequired[f.MainCategory] {
		subRules = append(subRules, validation.Required.Error(MsgSubCategoryRequired))
	}
	if teamRequired[f.MainCategory] {
		teamNameRules = append(teamNameRules, validation.Required.Error(MsgTeamNameRequired))
		teamMembersRules = append(teamMembersRules, validation.Required.Error(MsgTeamMembersRequired))
	}

	err := validation.ValidateStruct(&f,
		validation.Field(&f.FullName, validation.Required.Error(MsgFullNameRequired)),
		validation.Field(&f.Email,
			validation.Required.Error(MsgEmailRequired),
			validation.Match(emailPattern).Error(MsgEmailInvalid),
		),
		validation.Field(&f.PhoneNumber,
			validation.Required.Error(MsgPhoneRequired),
			validation.Match(phonePattern).Error(MsgPhoneInvalid),
		),
		validation.Field(&f.University,
			validation.Required.Error(MsgUniversityRequired),
			validation.Match(institutionPattern).Error(MsgUniversityInvalid),
		),
		validation.Field(&f.Department, validation.Match(institutionPattern).Error(MsgDepartmentInvalid)),
		validation.Field(&f.MainCategory,
			validation.Required.Error(MsgCategoryRequired),
			validation.In(toInterfaces(Categories)...).Error(MsgCategoryInvalid),
		),
		validation.Field(&f.SubCategory, subRules...),
		validation.Field(&f.TeamName, teamNameRules...),
		validation.Field(&f.TeamMembers, teamMembersRules...),
		validation.Field(&f.TermsAccepted, validation.Required.Error(MsgTermsRequired)),
	)
	return flatten(err, fieldOrder)
}

// flatten turns ozzo field errors into messages ordered by fields.
func flatten(err error, order []string) []string {
	if err == nil {
		return nil
	}
	errs, ok := err.(validation.Errors)
	if !ok {
		return []string{err.Error()}
	}
	byField := make(map[string]string, len(errs))
	for field, fe := range errs {
		byField[field] = fe.Error()
	}
	out := make([]string, 0, len(errs))
	for _, field := range order {
		if msg, ok := byField[field]; ok {
			out = append(out, msg)
		}
	}
	return out
}

func toInterfaces(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
