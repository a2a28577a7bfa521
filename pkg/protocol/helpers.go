package protocol

import (
	"github.com/teslashibe/go-puppet/pkg/pose"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewSetMessage creates a pose update message
func NewSetMessage(update pose.Update) (*Message, error) {
	return NewMessage(TypeSet, update)
}

// NewGetMessage creates a get request for the given keys
func NewGetMessage(keys ...string) (*Message, error) {
	return NewMessage(TypeGet, GetData{Keys: keys})
}

// NewCommandMessage creates a host command message
func NewCommandMessage(command string, args map[string]interface{}) (*Message, error) {
	return NewMessage(TypeCommand, CommandData{
		Command: command,
		Args:    args,
	})
}

// NewReplyMessage answers the request with ID replyTo
func NewReplyMessage(replyTo string, values map[string]interface{}) (*Message, error) {
	msg, err := NewMessage(TypeReply, values)
	if err != nil {
		return nil, err
	}
	msg.ReplyTo = replyTo
	return msg, nil
}

// NewPingMessage creates a ping message
func NewPingMessage(id string, ts int64) (*Message, error) {
	return NewMessage(TypePing, PingData{
		ID:        id,
		Timestamp: ts,
	})
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetUpdate extracts a pose update from a set message
func (m *Message) GetUpdate() (pose.Update, error) {
	data := pose.Update{}
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return data, nil
}

// GetGetData extracts the requested keys from a get message
func (m *Message) GetGetData() (*GetData, error) {
	var data GetData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetCommandData extracts a host command from a message
func (m *Message) GetCommandData() (*CommandData, error) {
	var data CommandData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetReplyValues extracts the values of a reply message
func (m *Message) GetReplyValues() (map[string]interface{}, error) {
	values := map[string]interface{}{}
	if err := m.ParseData(&values); err != nil {
		return nil, err
	}
	return values, nil
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
