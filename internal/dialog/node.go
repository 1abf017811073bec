// Package dialog provides the conversation node that echoes media back to a
// participant through the outbound path.
package dialog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// NodeType is the discriminator of SendMediaMessageNode definitions.
const NodeType = "send-media-message"

// Transition reasons and exit action types.
const (
	ReasonEchoMediaContinue = "echo-media-continue"
	ActionEcho              = "echo"
)

var errMissingField = errors.New("missing required field")

// Definition is the serialized form of a node.
type Definition struct {
	Type     string  `json:"type"`
	ID       string  `json:"id"`
	NextID   *string `json:"next_id"`
	MediaURL *string `json:"media_url"`
	Message  *string `json:"message"`
}

// ExitAction is a side effect the conversation engine runs when leaving a node.
type ExitAction struct {
	Type     string  `json:"type"`
	Message  *string `json:"message"`
	MediaURL *string `json:"media_url"`
}

// Transition moves the dialog to NewStateID.
type Transition struct {
	NewStateID  string       `json:"new_state_id"`
	Reason      string       `json:"reason"`
	ExitActions []ExitAction `json:"exit_actions"`
}

// NextNode labels one outgoing edge of a node.
type NextNode struct {
	ID    string
	Label string
}

// BuilderCard is a node type offered by dialog builders.
type BuilderCard struct {
	Title string
	Type  string
}

// SendMediaMessageNode sends an optional media URL and optional text, then
// continues to NextID. It never sends anything itself; evaluation only
// yields an echo exit action.
type SendMediaMessageNode struct {
	ID       string
	NextID   string
	MediaURL *string
	Message  *string
}

// Parse builds a node from def. It returns nil and no error when def is a
// different node type.
func Parse(def Definition) (*SendMediaMessageNode, error) {
	if def.Type != NodeType {
		return nil, nil
	}
	if def.ID == "" {
		return nil, fmt.Errorf("parse %s: %w: id", NodeType, errMissingField)
	}
	if def.NextID == nil {
		return nil, fmt.Errorf("parse %s %q: %w: next_id", NodeType, def.ID, errMissingField)
	}
	return &SendMediaMessageNode{
		ID:       def.ID,
		NextID:   *def.NextID,
		MediaURL: def.MediaURL,
		Message:  def.Message,
	}, nil
}

// ParseJSON decodes a raw definition and parses it.
func ParseJSON(raw []byte) (*SendMediaMessageNode, error) {
	var def Definition
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode node definition: %w", err)
	}
	return Parse(def)
}

// Type returns NodeType.
func (n *SendMediaMessageNode) Type() string { return NodeType }

// Evaluate continues to the next node with an echo exit action.
func (n *SendMediaMessageNode) Evaluate() Transition {
	return Transition{
		NewStateID: n.NextID,
		Reason:     ReasonEchoMediaContinue,
		ExitActions: []ExitAction{{
			Type:     ActionEcho,
			Message:  n.Message,
			MediaURL: n.MediaURL,
		}},
	}
}

// NextNodes returns the single continuation edge.
func (n *SendMediaMessageNode) NextNodes() []NextNode {
	return []NextNode{{ID: n.NextID, Label: "Next"}}
}

// Definition returns the serialized node.
func (n *SendMediaMessageNode) Definition() Definition {
	next := n.NextID
	return Definition{
		Type:     NodeType,
		ID:       n.ID,
		NextID:   &next,
		MediaURL: n.MediaURL,
		Message:  n.Message,
	}
}

func (n *SendMediaMessageNode) String() string {
	def := struct {
		ID       string  `json:"id"`
		NextID   string  `json:"next_id"`
		MediaURL *string `json:"media_url"`
		Message  *string `json:"message"`
	}{n.ID, n.NextID, n.MediaURL, n.Message}
	out, _ := json.MarshalIndent(def, "", "  ")
	return string(out)
}

// SearchText is the text indexed for node search.
func (n *SendMediaMessageNode) SearchText() string {
	values := []string{n.ID, NodeType, "echo-media"}
	if n.Message != nil {
		values = append(values, *n.Message)
	}
	if n.MediaURL != nil {
		values = append(values, *n.MediaURL)
	}
	if n.NextID != "" {
		values = append(values, n.NextID)
	}
	return strings.Join(values, "\n")
}

// BuilderCards lists the node types this package contributes.
func BuilderCards() []BuilderCard {
	return []BuilderCard{{Title: "Twilio: Send Media Message", Type: NodeType}}
}
