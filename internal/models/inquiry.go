package models

import (
	"time"
)

// InquiryStatus is the dispatch state of an inquiry.
type InquiryStatus string

const (
	InquiryStatusQueued InquiryStatus = "queued"
	InquiryStatusTaken  InquiryStatus = "taken"
	InquiryStatusReady  InquiryStatus = "ready"
	InquiryStatusOpen   InquiryStatus = "open"
)

// Valid reports whether s is one of the known statuses.
func (s InquiryStatus) Valid() bool {
	switch s {
	case InquiryStatusQueued, InquiryStatusTaken, InquiryStatusReady, InquiryStatusOpen:
		return true
	}
	return false
}

// VisitorStatus mirrors the presence of the visitor who opened the chat.
type VisitorStatus string

const (
	VisitorStatusOnline  VisitorStatus = "online"
	VisitorStatusAway    VisitorStatus = "away"
	VisitorStatusBusy    VisitorStatus = "busy"
	VisitorStatusOffline VisitorStatus = "offline"
)

func (s VisitorStatus) Valid() bool {
	switch s {
	case VisitorStatusOnline, VisitorStatusAway, VisitorStatusBusy, VisitorStatusOffline:
		return true
	}
	return false
}

const (
	// PriorityWeightNotSpecified sorts inquiries without a priority after every prioritised one.
	PriorityWeightNotSpecified = 99
	// DefaultEstimatedWaitingTimeQueue sorts inquiries without an SLA last.
	DefaultEstimatedWaitingTimeQueue = 9999999
)

// Visitor identifies the visitor session that originated the inquiry.
type Visitor struct {
	ID       string        `bson:"_id,omitempty" json:"_id,omitempty"`
	Username string        `bson:"username,omitempty" json:"username,omitempty"`
	Token    string        `bson:"token" json:"token"`
	Status   VisitorStatus `bson:"status,omitempty" json:"status,omitempty"`
}

// DefaultAgent is an agent pre-assigned to serve the inquiry.
type DefaultAgent struct {
	AgentID  string `bson:"agentId" json:"agentId"`
	Username string `bson:"username,omitempty" json:"username,omitempty"`
}

// Source describes the channel the chat arrived through (widget, api, app...).
type Source struct {
	Type  string `bson:"type" json:"type"`
	ID    string `bson:"id,omitempty" json:"id,omitempty"`
	Alias string `bson:"alias,omitempty" json:"alias,omitempty"`
}

// MessageAuthor is the sender reference kept in a message snapshot.
type MessageAuthor struct {
	ID       string `bson:"_id" json:"_id"`
	Username string `bson:"username,omitempty" json:"username,omitempty"`
	Name     string `bson:"name,omitempty" json:"name,omitempty"`
}

// MessageSnapshot is a denormalised copy of the latest room message used for previews.
type MessageSnapshot struct {
	ID     string         `bson:"_id" json:"_id"`
	RoomID string         `bson:"rid,omitempty" json:"rid,omitempty"`
	Msg    string         `bson:"msg" json:"msg"`
	Ts     time.Time      `bson:"ts" json:"ts"`
	User   *MessageAuthor `bson:"u,omitempty" json:"u,omitempty"`
}

// Inquiry is a pending chat request waiting for an agent.
// Stored in the `livechat_inquiry` collection.
type Inquiry struct {
	Base                           `bson:",inline"`
	RoomID                         string           `bson:"rid" json:"rid"`
	Name                           string           `bson:"name" json:"name"`
	Message                        string           `bson:"message,omitempty" json:"message,omitempty"`
	Department                     string           `bson:"department,omitempty" json:"department,omitempty"`
	Status                         InquiryStatus    `bson:"status" json:"status"`
	Visitor                        Visitor          `bson:"v" json:"v"`
	Source                         *Source          `bson:"source,omitempty" json:"source,omitempty"`
	PriorityID                     string           `bson:"priorityId,omitempty" json:"priorityId,omitempty"`
	PriorityWeight                 int              `bson:"priorityWeight" json:"priorityWeight"`
	SlaID                          string           `bson:"slaId,omitempty" json:"slaId,omitempty"`
	EstimatedWaitingTimeQueue      int              `bson:"estimatedWaitingTimeQueue" json:"estimatedWaitingTimeQueue"`
	Ts                             time.Time        `bson:"ts" json:"ts"`
	QueuedAt                       *time.Time       `bson:"queuedAt,omitempty" json:"queuedAt,omitempty"`
	TakenAt                        *time.Time       `bson:"takenAt,omitempty" json:"takenAt,omitempty"`
	Locked                         bool             `bson:"locked,omitempty" json:"locked,omitempty"`
	LockedAt                       *time.Time       `bson:"lockedAt,omitempty" json:"lockedAt,omitempty"`
	DefaultAgent                   *DefaultAgent    `bson:"defaultAgent,omitempty" json:"defaultAgent,omitempty"`
	LastMessage                    *MessageSnapshot `bson:"lastMessage,omitempty" json:"lastMessage,omitempty"`
	EstimatedInactivityCloseTimeAt *time.Time       `bson:"estimatedInactivityCloseTimeAt,omitempty" json:"estimatedInactivityCloseTimeAt,omitempty"`
}

// NewInquiry holds what the room lifecycle manager supplies when a chat needs an agent.
type NewInquiry struct {
	RoomID       string        `json:"rid" binding:"required"`
	Name         string        `json:"name"`
	Message      string        `json:"message"`
	Department   string        `json:"department"`
	Visitor      Visitor       `json:"v" binding:"required"`
	Source       *Source       `json:"source"`
	DefaultAgent *DefaultAgent `json:"defaultAgent"`
	Ts           *time.Time    `json:"ts"` // Defaults to now
}

// QueuedInquiryPosition is one row of the sorted queue with its zero-based rank.
type QueuedInquiryPosition struct {
	ID         string        `bson:"_id" json:"_id"`
	RoomID     string        `bson:"rid" json:"rid"`
	Name       string        `bson:"name" json:"name"`
	Ts         time.Time     `bson:"ts" json:"ts"`
	Status     InquiryStatus `bson:"status" json:"status"`
	Department string        `bson:"department,omitempty" json:"department,omitempty"`
	Position   int64         `bson:"position" json:"position"`
}

// Priority is the subset of a livechat priority the queue stores on an inquiry.
type Priority struct {
	ID       string `bson:"_id" json:"_id" binding:"required"`
	SortItem int    `bson:"sortItem" json:"sortItem"`
}

// SlaAssignment is the SLA data the queue stores on an inquiry.
type SlaAssignment struct {
	SlaID                     string `json:"slaId" binding:"required"`
	EstimatedWaitingTimeQueue int    `json:"estimatedWaitingTimeQueue"`
}
