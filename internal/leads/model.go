package leads

import (
	"sort"
	"strings"
	"time"
)

// Status is the lifecycle state of a lead, owned by the dashboard.
type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
)

// ContactMethod is how the customer wants to be reached.
type ContactMethod string

const (
	ContactPhone ContactMethod = "phone"
	ContactEmail ContactMethod = "email"
	ContactText  ContactMethod = "text"
)

// Lead is a qualified roofing prospect.
type Lead struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	Phone            string        `json:"phone"`
	Address          string        `json:"address"`
	Problem          string        `json:"problem"`
	EmergencyLevel   int           `json:"emergencyLevel"`
	Status           Status        `json:"status"`
	PreferredContact ContactMethod `json:"preferredContact"`
	Email            string        `json:"email,omitempty"`
	City             string        `json:"city,omitempty"`
	State            string        `json:"state,omitempty"`
	ZipCode          string        `json:"zipCode,omitempty"`
	PropertyType     string        `json:"propertyType,omitempty"`
	PreferredTime    string        `json:"preferredTime,omitempty"`
	Availability     string        `json:"availability,omitempty"`
	ScheduledTime    string        `json:"scheduledTime,omitempty"`
	Source           string        `json:"source,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
}

// CreateLeadRequest represents the request body for creating or refreshing a lead.
type CreateLeadRequest struct {
	Name             string        `json:"name" validate:"required,min=2,max=100,personname"`
	Phone            string        `json:"phone" validate:"required_without=Email,omitempty,naphone"`
	Email            string        `json:"email" validate:"omitempty,email"`
	Address          string        `json:"address" validate:"omitempty,min=5"`
	Problem          string        `json:"problem" validate:"omitempty,min=10,max=2000"`
	EmergencyLevel   int           `json:"emergencyLevel" validate:"omitempty,min=1,max=5"`
	Status           Status        `json:"status" validate:"omitempty,oneof=new contacted scheduled completed"`
	PreferredContact ContactMethod `json:"preferredContact" validate:"omitempty,oneof=phone email text"`
	City             string        `json:"city"`
	State            string        `json:"state"`
	ZipCode          string        `json:"zipCode" validate:"omitempty,max=10"`
	PropertyType     string        `json:"propertyType"`
	PreferredTime    string        `json:"preferredTime"`
	Availability     string        `json:"availability"`
	ScheduledTime    string        `json:"scheduledTime"`
	Source           string        `json:"source"`
}

// UpdateLeadRequest carries the fields the dashboard may change after creation.
// Nil pointers leave the stored value untouched.
type UpdateLeadRequest struct {
	Status           *Status        `json:"status,omitempty" validate:"omitempty,oneof=new contacted scheduled completed"`
	PreferredContact *ContactMethod `json:"preferredContact,omitempty" validate:"omitempty,oneof=phone email text"`
	Phone            *string        `json:"phone,omitempty" validate:"omitempty,naphone"`
	Email            *string        `json:"email,omitempty" validate:"omitempty,email"`
	Availability     *string        `json:"availability,omitempty"`
	PreferredTime    *string        `json:"preferredTime,omitempty"`
	ScheduledTime    *string        `json:"scheduledTime,omitempty"`
}

// ListLeadsFilter narrows a listing. Zero Limit means no limit.
type ListLeadsFilter struct {
	Status Status
	Limit  int
	Offset int
}

// normalized returns a trimmed copy with the phone in E.164. The receiver is
// left as the caller passed it. It must run after Validate.
func (r CreateLeadRequest) normalized() *CreateLeadRequest {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = NormalizePhone(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Address = strings.TrimSpace(r.Address)
	r.Problem = strings.TrimSpace(r.Problem)
	r.City = strings.TrimSpace(r.City)
	r.State = strings.TrimSpace(r.State)
	r.ZipCode = strings.TrimSpace(r.ZipCode)
	return &r
}

func newLead(id string, req *CreateLeadRequest, now time.Time) *Lead {
	lead := &Lead{
		ID:               id,
		Name:             req.Name,
		Phone:            req.Phone,
		Address:          req.Address,
		Problem:          req.Problem,
		EmergencyLevel:   req.EmergencyLevel,
		Status:           req.Status,
		PreferredContact: req.PreferredContact,
		Email:            req.Email,
		City:             req.City,
		State:            req.State,
		ZipCode:          req.ZipCode,
		PropertyType:     req.PropertyType,
		PreferredTime:    req.PreferredTime,
		Availability:     req.Availability,
		ScheduledTime:    req.ScheduledTime,
		Source:           req.Source,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if lead.EmergencyLevel == 0 {
		lead.EmergencyLevel = 1
	}
	if lead.Status == "" {
		lead.Status = StatusNew
	}
	if lead.PreferredContact == "" {
		lead.PreferredContact = ContactPhone
	}
	return lead
}

// merge folds a repeat submission into an existing lead; non-empty values win.
func (l *Lead) merge(req *CreateLeadRequest, now time.Time) {
	setIf(&l.Name, req.Name)
	setIf(&l.Phone, req.Phone)
	setIf(&l.Address, req.Address)
	setIf(&l.Problem, req.Problem)
	setIf(&l.Email, req.Email)
	setIf(&l.City, req.City)
	setIf(&l.State, req.State)
	setIf(&l.ZipCode, req.ZipCode)
	setIf(&l.PropertyType, req.PropertyType)
	setIf(&l.PreferredTime, req.PreferredTime)
	setIf(&l.Availability, req.Availability)
	setIf(&l.ScheduledTime, req.ScheduledTime)
	if req.EmergencyLevel != 0 {
		l.EmergencyLevel = req.EmergencyLevel
	}
	if req.Status != "" {
		l.Status = req.Status
	}
	if req.PreferredContact != "" {
		l.PreferredContact = req.PreferredContact
	}
	l.UpdatedAt = now
}

func (l *Lead) apply(req *UpdateLeadRequest, now time.Time) {
	if req.Status != nil {
		l.Status = *req.Status
	}
	if req.PreferredContact != nil {
		l.PreferredContact = *req.PreferredContact
	}
	if req.Phone != nil {
		l.Phone = NormalizePhone(*req.Phone)
	}
	if req.Email != nil {
		l.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Availability != nil {
		l.Availability = *req.Availability
	}
	if req.PreferredTime != nil {
		l.PreferredTime = *req.PreferredTime
	}
	if req.ScheduledTime != nil {
		l.ScheduledTime = *req.ScheduledTime
	}
	l.UpdatedAt = now
}

// sameCustomer reports whether req describes the customer behind l.
func (l *Lead) sameCustomer(req *CreateLeadRequest) bool {
	if req.Phone != "" && l.Phone == req.Phone {
		return true
	}
	return req.Email != "" && strings.EqualFold(l.Email, req.Email)
}

func (l *Lead) clone() *Lead {
	c := *l
	return &c
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// applyFilter orders leads newest first and applies status and paging.
func applyFilter(all []*Lead, filter ListLeadsFilter) []*Lead {
	out := make([]*Lead, 0, len(all))
	for _, l := range all {
		if filter.Status != "" && l.Status != filter.Status {
			continue
		}
		out = append(out, l.clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*Lead{}
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}
