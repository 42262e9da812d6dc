package models

import (
	"net/mail"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/phillip/group-contributions-go/apperr"
)

type Member struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Phone     string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Email     string             `bson:"email,omitempty" json:"email,omitempty"`
	JoinDate  time.Time          `bson:"join_date" json:"joinDate"`
	IsActive  bool               `bson:"is_active" json:"isActive"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// MemberInput is the body accepted when creating a member.
type MemberInput struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone"`
	Email string `json:"email" binding:"omitempty,email"`
}

// NewMember builds an active member joining now.
func NewMember(in MemberInput) (*Member, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validationf("name is required")
	}
	now := Now()
	return &Member{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Phone:     strings.TrimSpace(in.Phone),
		Email:     strings.TrimSpace(in.Email),
		JoinDate:  now,
		IsActive:  true,
		UpdatedAt: now,
	}, nil
}

// MemberPatch carries the fields of a partial update; nil means unchanged.
type MemberPatch struct {
	Name     *string    `json:"name"`
	Phone    *string    `json:"phone"`
	Email    *string    `json:"email"`
	IsActive *bool      `json:"isActive"`
	JoinDate *time.Time `json:"joinDate"`
}

func (p MemberPatch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.Email == nil && p.IsActive == nil && p.JoinDate == nil
}

func (p MemberPatch) Validate() error {
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return apperr.Validationf("name cannot be empty")
	}
	if p.Email != nil && strings.TrimSpace(*p.Email) != "" {
		if _, err := mail.ParseAddress(strings.TrimSpace(*p.Email)); err != nil {
			return apperr.Validationf("invalid email address")
		}
	}
	return nil
}

// Apply copies the set fields onto m.
func (p MemberPatch) Apply(m *Member) {
	if p.Name != nil {
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		m.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Email != nil {
		m.Email = strings.TrimSpace(*p.Email)
	}
	if p.IsActive != nil {
		m.IsActive = *p.IsActive
	}
	if p.JoinDate != nil {
		m.JoinDate = *p.JoinDate
	}
	m.UpdatedAt = Now()
}

// Summary is the subset of member fields embedded in contribution responses.
func (m *Member) Summary() *MemberSummary {
	return &MemberSummary{ID: m.ID, Name: m.Name, Phone: m.Phone, Email: m.Email}
}

type MemberSummary struct {
	ID    primitive.ObjectID `bson:"_id" json:"_id"`
	Name  string             `bson:"name" json:"name"`
	Phone string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Email string             `bson:"email,omitempty" json:"email,omitempty"`
}
