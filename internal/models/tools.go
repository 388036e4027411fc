// Package models defines tool structures for LLM function calling.
package models

import (
	"encoding/json"
	"fmt"
)

// ToolType defines the type of tool available to the LLM.
type ToolType string

const (
	// ToolTypeTriggerFlow sends an interactive WhatsApp Flow invitation.
	ToolTypeTriggerFlow ToolType = "trigger_whatsapp_flow"
	// ToolTypeCancelOrder cancels an order still in "received" status.
	ToolTypeCancelOrder ToolType = "cancel_order"
	// ToolTypeCancelReservation cancels a reservation owned by the caller.
	ToolTypeCancelReservation ToolType = "cancel_reservation"
	// ToolTypeSendFoodImage sends a menu item or category image.
	ToolTypeSendFoodImage ToolType = "send_food_image"
)

// FlowName identifies which interactive WhatsApp Flow to launch.
type FlowName string

const (
	// FlowNameOrder is the interactive order placement flow.
	FlowNameOrder FlowName = "order_flow"
	// FlowNameReservation is the interactive reservation flow.
	FlowNameReservation FlowName = "reservation"
	// FlowNameOrderRating is the post-order rating flow.
	FlowNameOrderRating FlowName = "order_rating"
	// FlowNameReservationRating is the post-visit rating flow.
	FlowNameReservationRating FlowName = "reservation_rating"
)

// TriggerFlowParams defines the parameters for the trigger_whatsapp_flow
// tool call.
type TriggerFlowParams struct {
	ToNumber string   `json:"to_number"` // recipient in E.164 format
	Message  string   `json:"message"`   // body text shown above the CTA button
	FlowCTA  string   `json:"flow_cta"`  // call-to-action button label
	FlowName FlowName `json:"flow_name"` // which flow to launch
}

// Validate ensures the trigger flow parameters are valid.
func (p *TriggerFlowParams) Validate() error {
	if p.ToNumber == "" {
		return ErrEmptyRecipient
	}
	if p.Message == "" {
		return ErrEmptyMessage
	}
	if p.FlowCTA == "" {
		return fmt.Errorf("flow_cta is required")
	}
	switch p.FlowName {
	case FlowNameOrder, FlowNameReservation, FlowNameOrderRating, FlowNameReservationRating:
		return nil
	default:
		return fmt.Errorf("invalid flow_name: %s", p.FlowName)
	}
}

// CancelOrderParams defines the parameters for the cancel_order tool call.
type CancelOrderParams struct {
	ContactNumber string `json:"contact_number"`
	OrderDetails  string `json:"order_details"`
}

// Validate ensures the cancel order parameters are valid.
func (p *CancelOrderParams) Validate() error {
	if p.ContactNumber == "" {
		return ErrEmptyRecipient
	}
	if p.OrderDetails == "" {
		return ErrEmptyOrderItems
	}
	return nil
}

// CancelReservationParams defines the parameters for the cancel_reservation
// tool call.
type CancelReservationParams struct {
	ContactNumber string `json:"contact_number"`
	TableNumber   int    `json:"table_number"`
}

// Validate ensures the cancel reservation parameters are valid.
func (p *CancelReservationParams) Validate() error {
	if p.ContactNumber == "" {
		return ErrEmptyRecipient
	}
	if p.TableNumber <= 0 {
		return fmt.Errorf("table_number must be positive, got %d", p.TableNumber)
	}
	return nil
}

// SendFoodImageParams defines the parameters for the send_food_image tool
// call. Query may be a specific item name or a menu category.
type SendFoodImageParams struct {
	Query       string `json:"query"`
	PhoneNumber string `json:"phone_number"`
	PageNumber  int    `json:"page_number,omitempty"`
}

// Validate ensures the send food image parameters are valid.
func (p *SendFoodImageParams) Validate() error {
	if p.Query == "" {
		return fmt.Errorf("query is required")
	}
	if p.PhoneNumber == "" {
		return ErrEmptyRecipient
	}
	return nil
}

// ParseToolParams unmarshals raw tool-call arguments into the typed params
// struct for the named tool and validates them.
func ParseToolParams(tool ToolType, raw json.RawMessage) (interface{}, error) {
	switch tool {
	case ToolTypeTriggerFlow:
		var p TriggerFlowParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to parse trigger_whatsapp_flow params: %w", err)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &p, nil
	case ToolTypeCancelOrder:
		var p CancelOrderParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to parse cancel_order params: %w", err)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &p, nil
	case ToolTypeCancelReservation:
		var p CancelReservationParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to parse cancel_reservation params: %w", err)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &p, nil
	case ToolTypeSendFoodImage:
		var p SendFoodImageParams
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("failed to parse send_food_image params: %w", err)
		}
		if err := p.Validate(); err != nil {
			return nil, err
		}
		return &p, nil
	default:
		return nil, fmt.Errorf("unknown tool type: %s", tool)
	}
}
