/*
Package factory converts JSON policy-settings documents to timeoff settings.

PURPOSE:
  HR edits a year's PolicySettings through a partial JSON document. Only
  the keys present in the document change; absent keys keep their stored
  value. The factory parses, validates and merges the document, and also
  renders stored settings back to the same JSON shape.

JSON SCHEMA (all keys optional):
  {
    "annual_pl": 7, "annual_cl": 5, "annual_sl": 6, "annual_rh": 1,
    "monthly_credit_pl": 1, "monthly_credit_cl": 1, "monthly_credit_sl": 0,
    "pl_eligibility_months": 6,
    "backdated_max_days": 7,
    "carry_forward_pl_max": 4,
    "wfh_max_days": 12, "wfh_day_value": 0.5,
    "cl_pl_notice_days": 3, "cl_pl_monthly_cap": 4,
    "enforce_monthly_cap": false, "enforce_notice_days": false,
    "weekly_off_day": 7,
    "sandwich_enabled": true,
    ...
  }

  Day amounts must be non-negative multiples of 0.5. Unknown keys are
  rejected so that a typo never silently does nothing.

USAGE:
  f := factory.NewPolicyFactory()
  doc, err := f.ParseSettings(body)
  svc.UpdateSettings(ctx, actor, year, doc.ApplyTo)

SEE ALSO:
  - timeoff/settings.go: PolicySettings and defaults
  - api/handlers.go: GET/PUT /policy/settings
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/timeoff"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// SettingsJSON is the wire form of PolicySettings. Nil fields are "not set".
type SettingsJSON struct {
	Year      int        `json:"year,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`

	AnnualPL           *float64 `json:"annual_pl,omitempty" validate:"omitempty,gte=0,halfday"`
	AnnualCL           *float64 `json:"annual_cl,omitempty" validate:"omitempty,gte=0,halfday"`
	AnnualSL           *float64 `json:"annual_sl,omitempty" validate:"omitempty,gte=0,halfday"`
	AnnualRH           *float64 `json:"annual_rh,omitempty" validate:"omitempty,gte=0,lte=1,halfday"`
	PublicHolidayTotal *int     `json:"public_holiday_total,omitempty" validate:"omitempty,gte=0,lte=366"`

	MonthlyCreditPL *float64 `json:"monthly_credit_pl,omitempty" validate:"omitempty,gte=0,halfday"`
	MonthlyCreditCL *float64 `json:"monthly_credit_cl,omitempty" validate:"omitempty,gte=0,halfday"`
	MonthlyCreditSL *float64 `json:"monthly_credit_sl,omitempty" validate:"omitempty,gte=0,halfday"`

	PLEligibilityMonths *int     `json:"pl_eligibility_months,omitempty" validate:"omitempty,gte=0,lte=60"`
	BackdatedMaxDays    *int     `json:"backdated_max_days,omitempty" validate:"omitempty,gte=0,lte=366"`
	CarryForwardPLMax   *float64 `json:"carry_forward_pl_max,omitempty" validate:"omitempty,gte=0,halfday"`

	WFHMaxDays  *int     `json:"wfh_max_days,omitempty" validate:"omitempty,gte=0,lte=366"`
	WFHDayValue *float64 `json:"wfh_day_value,omitempty" validate:"omitempty,gte=0,lte=1,halfday"`

	NoticeDaysCLPL    *int     `json:"cl_pl_notice_days,omitempty" validate:"omitempty,gte=0,lte=90"`
	MonthlyCapCLPL    *float64 `json:"cl_pl_monthly_cap,omitempty" validate:"omitempty,gte=0,halfday"`
	EnforceMonthlyCap *bool    `json:"enforce_monthly_cap,omitempty"`
	EnforceNoticeDays *bool    `json:"enforce_notice_days,omitempty"`

	EnforceSickIntimation    *bool `json:"enforce_sick_intimation,omitempty"`
	SickIntimationMinMinutes *int  `json:"sick_intimation_min_minutes,omitempty" validate:"omitempty,gte=0,lte=1440"`

	WeeklyOffDay *int `json:"weekly_off_day,omitempty" validate:"omitempty,min=1,max=7"`

	SandwichEnabled          *bool `json:"sandwich_enabled,omitempty"`
	SandwichIncludeWeeklyOff *bool `json:"sandwich_include_weekly_off,omitempty"`
	SandwichIncludeHolidays  *bool `json:"sandwich_include_holidays,omitempty"`
	SandwichIncludeRH        *bool `json:"sandwich_include_rh,omitempty"`
	EventsNonWorking         *bool `json:"treat_event_as_non_working_for_sandwich,omitempty"`
	BlockLeaveOnEvents       *bool `json:"block_leave_on_company_events,omitempty"`

	AllowHROverride *bool `json:"allow_hr_override,omitempty"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory parses and validates settings documents.
type PolicyFactory struct {
	validate *validator.Validate
}

func NewPolicyFactory() *PolicyFactory {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		return name
	})
	_ = v.RegisterValidation("halfday", func(fl validator.FieldLevel) bool {
		return generic.IsHalfDayMultiple(decimal.NewFromFloat(fl.Field().Float()))
	})
	return &PolicyFactory{validate: v}
}

// ParseSettings decodes and validates a partial settings document.
func (f *PolicyFactory) ParseSettings(data []byte) (*SettingsJSON, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var doc SettingsJSON
	if err := dec.Decode(&doc); err != nil {
		return nil, generic.Validation(generic.ReasonInvalidInput, "invalid settings document: %v", err)
	}
	if err := f.Validate(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the `validate` tags of doc, a settings document or any
// request body, and reports failures per json field name.
func (f *PolicyFactory) Validate(doc any) error {
	err := f.validate.Struct(doc)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return generic.Validation(generic.ReasonInvalidInput, "invalid document: %v", err)
	}
	fields := make(map[string]string, len(verrs))
	names := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = ruleText(fe)
		names = append(names, fe.Field())
	}
	return generic.Validation(generic.ReasonInvalidInput, "invalid fields: %s", strings.Join(names, ", ")).
		WithDetail("fields", fields)
}

func ruleText(fe validator.FieldError) string {
	switch fe.Tag() {
	case "halfday":
		return "must be a multiple of 0.5"
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "required":
		return "is required"
	case "email":
		return "must be an email address"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return fmt.Sprintf("failed %s", fe.Tag())
}

// =============================================================================
// MERGE AND RENDER
// =============================================================================

// ApplyTo copies the set fields onto s. It has the signature
// timeoff.Service.UpdateSettings expects.
func (doc *SettingsJSON) ApplyTo(s *timeoff.PolicySettings) error {
	setDays(&s.AnnualPL, doc.AnnualPL)
	setDays(&s.AnnualCL, doc.AnnualCL)
	setDays(&s.AnnualSL, doc.AnnualSL)
	setDays(&s.AnnualRH, doc.AnnualRH)
	setInt(&s.PublicHolidayTotal, doc.PublicHolidayTotal)
	setDays(&s.MonthlyCreditPL, doc.MonthlyCreditPL)
	setDays(&s.MonthlyCreditCL, doc.MonthlyCreditCL)
	setDays(&s.MonthlyCreditSL, doc.MonthlyCreditSL)
	setInt(&s.PLEligibilityMonths, doc.PLEligibilityMonths)
	setInt(&s.BackdatedMaxDays, doc.BackdatedMaxDays)
	setDays(&s.CarryForwardPLMax, doc.CarryForwardPLMax)
	setInt(&s.WFHMaxDays, doc.WFHMaxDays)
	setDays(&s.WFHDayValue, doc.WFHDayValue)
	setInt(&s.NoticeDaysCLPL, doc.NoticeDaysCLPL)
	setDays(&s.MonthlyCapCLPL, doc.MonthlyCapCLPL)
	setBool(&s.EnforceMonthlyCap, doc.EnforceMonthlyCap)
	setBool(&s.EnforceNoticeDays, doc.EnforceNoticeDays)
	setBool(&s.EnforceSickIntimation, doc.EnforceSickIntimation)
	setInt(&s.SickIntimationMinMinutes, doc.SickIntimationMinMinutes)
	setInt(&s.WeeklyOffDay, doc.WeeklyOffDay)
	setBool(&s.SandwichEnabled, doc.SandwichEnabled)
	setBool(&s.SandwichIncludeWeeklyOff, doc.SandwichIncludeWeeklyOff)
	setBool(&s.SandwichIncludeHolidays, doc.SandwichIncludeHolidays)
	setBool(&s.SandwichIncludeRH, doc.SandwichIncludeRH)
	setBool(&s.EventsNonWorking, doc.EventsNonWorking)
	setBool(&s.BlockLeaveOnEvents, doc.BlockLeaveOnEvents)
	setBool(&s.AllowHROverride, doc.AllowHROverride)
	return nil
}

// FromSettings renders every field of s.
func FromSettings(s *timeoff.PolicySettings) SettingsJSON {
	doc := SettingsJSON{
		Year:                     s.Year,
		AnnualPL:                 daysPtr(s.AnnualPL),
		AnnualCL:                 daysPtr(s.AnnualCL),
		AnnualSL:                 daysPtr(s.AnnualSL),
		AnnualRH:                 daysPtr(s.AnnualRH),
		PublicHolidayTotal:       ptr(s.PublicHolidayTotal),
		MonthlyCreditPL:          daysPtr(s.MonthlyCreditPL),
		MonthlyCreditCL:          daysPtr(s.MonthlyCreditCL),
		MonthlyCreditSL:          daysPtr(s.MonthlyCreditSL),
		PLEligibilityMonths:      ptr(s.PLEligibilityMonths),
		BackdatedMaxDays:         ptr(s.BackdatedMaxDays),
		CarryForwardPLMax:        daysPtr(s.CarryForwardPLMax),
		WFHMaxDays:               ptr(s.WFHMaxDays),
		WFHDayValue:              daysPtr(s.WFHDayValue),
		NoticeDaysCLPL:           ptr(s.NoticeDaysCLPL),
		MonthlyCapCLPL:           daysPtr(s.MonthlyCapCLPL),
		EnforceMonthlyCap:        ptr(s.EnforceMonthlyCap),
		EnforceNoticeDays:        ptr(s.EnforceNoticeDays),
		EnforceSickIntimation:    ptr(s.EnforceSickIntimation),
		SickIntimationMinMinutes: ptr(s.SickIntimationMinMinutes),
		WeeklyOffDay:             ptr(s.WeeklyOffDay),
		SandwichEnabled:          ptr(s.SandwichEnabled),
		SandwichIncludeWeeklyOff: ptr(s.SandwichIncludeWeeklyOff),
		SandwichIncludeHolidays:  ptr(s.SandwichIncludeHolidays),
		SandwichIncludeRH:        ptr(s.SandwichIncludeRH),
		EventsNonWorking:         ptr(s.EventsNonWorking),
		BlockLeaveOnEvents:       ptr(s.BlockLeaveOnEvents),
		AllowHROverride:          ptr(s.AllowHROverride),
	}
	if !s.UpdatedAt.IsZero() {
		doc.UpdatedAt = ptr(s.UpdatedAt)
	}
	return doc
}

func setDays(dst *decimal.Decimal, v *float64) {
	if v != nil {
		*dst = decimal.NewFromFloat(*v)
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func ptr[T any](v T) *T { return &v }

func daysPtr(d decimal.Decimal) *float64 { return ptr(d.InexactFloat64()) }
