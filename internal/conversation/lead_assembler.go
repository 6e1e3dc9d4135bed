package conversation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/roofing-lead-agent/internal/leads"
)

// ErrQualificationIncomplete is returned when a lead is assembled before all fields are collected.
var ErrQualificationIncomplete = errors.New("conversation: qualification is not complete")

// LeadSource tags leads captured by the chat agent.
const LeadSource = "chat"

// LeadDetails are values typed into the lead form. Non-empty values take
// precedence over what the chat extracted.
type LeadDetails struct {
	Name             string `json:"name,omitempty"`
	Phone            string `json:"phone,omitempty"`
	Email            string `json:"email,omitempty"`
	Address          string `json:"address,omitempty"`
	Problem          string `json:"problem,omitempty"`
	PreferredContact string `json:"preferredContact,omitempty"`
	City             string `json:"city,omitempty"`
	State            string `json:"state,omitempty"`
	ZipCode          string `json:"zipCode,omitempty"`
	PropertyType     string `json:"propertyType,omitempty"`
	PreferredTime    string `json:"preferredTime,omitempty"`
	Availability     string `json:"availability,omitempty"`
	ScheduledTime    string `json:"scheduledTime,omitempty"`
}

// Apply records the form's core fields on the conversation.
func (d LeadDetails) Apply(conv Conversation) Conversation {
	for field, value := range map[Field]string{
		FieldName:             d.Name,
		FieldPhone:            d.Phone,
		FieldAddress:          d.Address,
		FieldProblem:          d.Problem,
		FieldPreferredContact: d.PreferredContact,
	} {
		if strings.TrimSpace(value) != "" {
			conv = RecordField(conv, field, value)
		}
	}
	return conv
}

// AssembleLead packages a conversation into a lead creation request. Unless
// force is set, every qualification field must have been collected.
func AssembleLead(conv Conversation, details LeadDetails, force bool) (*leads.CreateLeadRequest, error) {
	conv = details.Apply(conv)
	if !force && !conv.LeadFlags.Complete() {
		return nil, ErrQualificationIncomplete
	}

	req := &leads.CreateLeadRequest{
		Name:           conv.Value(FieldName),
		Phone:          conv.Value(FieldPhone),
		Email:          strings.TrimSpace(details.Email),
		Address:        conv.Value(FieldAddress),
		Problem:        conv.Value(FieldProblem),
		EmergencyLevel: min(max(conv.EmergencyLevel, LevelNone), LevelCritical),
		Status:         leads.StatusNew,
		City:           details.City,
		State:          details.State,
		ZipCode:        details.ZipCode,
		PropertyType:   details.PropertyType,
		PreferredTime:  details.PreferredTime,
		Availability:   details.Availability,
		ScheduledTime:  details.ScheduledTime,
		Source:         LeadSource,
	}

	contact := conv.Value(FieldPreferredContact)
	switch method := leads.ContactMethod(strings.ToLower(contact)); method {
	case leads.ContactPhone, leads.ContactEmail, leads.ContactText:
		req.PreferredContact = method
	default:
		if emailPattern.MatchString(contact) {
			req.PreferredContact = leads.ContactEmail
			if req.Email == "" {
				req.Email = emailPattern.FindString(contact)
			}
		}
	}
	if req.PreferredContact == "" {
		req.PreferredContact = leads.ContactPhone
	}

	if req.Problem == "" {
		req.Problem = firstProblemStatement(conv)
	}
	return req, nil
}

// firstProblemStatement picks the first substantive customer message that was
// not already taken as another field.
func firstProblemStatement(conv Conversation) string {
	taken := make(map[string]bool, len(conv.Fields))
	for _, v := range conv.Fields {
		taken[v] = true
	}
	for _, m := range conv.Messages {
		if m.Sender != SenderUser {
			continue
		}
		text := strings.TrimSpace(m.Text)
		if taken[text] || utf8.RuneCountInString(text) < 10 || isBareGreeting(strings.ToLower(text)) {
			continue
		}
		return text
	}
	return ""
}
