package model

import (
	"math"
	"strings"
	"time"
)

// Coordinates is a WGS84 point shared by alerts, push payloads, and map views.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether both coordinates are finite and inside WGS84 bounds.
func (c Coordinates) Valid() bool {
	if math.IsNaN(c.Latitude) || math.IsInf(c.Latitude, 0) {
		return false
	}
	if math.IsNaN(c.Longitude) || math.IsInf(c.Longitude, 0) {
		return false
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// UserIdentity is the minimal authenticated-user record persisted across
// agent restarts. Absence of a stored identity means "not authenticated".
type UserIdentity struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// EmergencyEvent is one normalized alert observed during the current
// session: who triggered it and where. Events are immutable once created.
type EmergencyEvent struct {
	ID         string  `json:"id"`
	SenderName string  `json:"senderName"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// Complete reports whether all required fields are present with numeric
// coordinates. Incomplete events must never reach the event log.
func (e EmergencyEvent) Complete() bool {
	if e.ID == "" || strings.TrimSpace(e.SenderName) == "" {
		return false
	}
	return Coordinates{Latitude: e.Latitude, Longitude: e.Longitude}.Valid()
}

// Position returns the event location as Coordinates.
func (e EmergencyEvent) Position() Coordinates {
	return Coordinates{Latitude: e.Latitude, Longitude: e.Longitude}
}

// WhatsAppLink is a deep link pre-addressed to one trusted contact, returned
// by the backend after a successful alert submission.
type WhatsAppLink struct {
	Name string `json:"nome"`
	Link string `json:"link"`
}

// ReceivedAlert is an emergency record addressed to the current actor.
type ReceivedAlert struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"usuarioId"`
	SenderName string    `json:"usuarioNome"`
	SentAt     time.Time `json:"dataHora"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
}

// Post is one feed entry.
type Post struct {
	ID          string    `json:"id"`
	AuthorName  string    `json:"usuarioNome"`
	Content     string    `json:"conteudo"`
	Likes       int       `json:"curtidas"`
	PublishedAt time.Time `json:"dataPublicacao"`
}

// Comment is one reply attached to a post.
type Comment struct {
	ID         string `json:"id"`
	PostID     string `json:"postId"`
	AuthorName string `json:"usuarioNome"`
	Content    string `json:"conteudo"`
}

// Requester identifies who opened a support-network solicitation.
type Requester struct {
	Name  string `json:"nome"`
	Email string `json:"email"`
}

// SupportRequest is a pending support-network solicitation between two users.
type SupportRequest struct {
	ID          string    `json:"id"`
	RequesterID string    `json:"solicitanteId"`
	RequestedID string    `json:"solicitadoId"`
	Status      string    `json:"status"`
	RequestedAt time.Time `json:"dataSolicitacao"`
	Requester   Requester `json:"solicitante"`
}

// TrustedContact is a user who mutually accepted a support-network
// relationship and is eligible to receive emergency notifications.
type TrustedContact struct {
	ID    string `json:"id"`
	Name  string `json:"nome"`
	Email string `json:"email"`
}

// SupportGroup is a community group or recurring event.
type SupportGroup struct {
	ID          string `json:"id"`
	Name        string `json:"nome"`
	Description string `json:"descricao"`
	Location    string `json:"local"`
	Schedule    string `json:"horario"`
	Weekday     string `json:"diaSemana"`
	Contact     string `json:"contatoResponsavel"`
}
