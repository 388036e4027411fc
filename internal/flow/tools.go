package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/genai"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

// assistantTools returns the tool definitions offered to the AI responder.
func assistantTools() []openai.ChatCompletionToolParam {
	return []openai.ChatCompletionToolParam{
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        string(models.ToolTypeTriggerFlow),
				Description: openai.String("Triggers a WhatsApp Flow by sending a structured interactive message to the user."),
				Parameters: shared.FunctionParameters{
					"type":     "object",
					"required": []string{"to_number", "message", "flow_cta", "flow_name"},
					"properties": map[string]interface{}{
						"to_number": map[string]interface{}{
							"type":        "string",
							"description": "The WhatsApp number of the user in E.164 format (e.g., +2637XXXXXXX).",
						},
						"message": map[string]interface{}{
							"type":        "string",
							"description": "The friendly message text that appears before the WhatsApp Flow starts.",
						},
						"flow_cta": map[string]interface{}{
							"type":        "string",
							"description": "The label for the call-to-action button (e.g., 'Start Order').",
						},
						"flow_name": map[string]interface{}{
							"type":        "string",
							"enum":        []string{string(models.FlowNameOrder), string(models.FlowNameReservation)},
							"description": "The internal reference name for the WhatsApp Flow to be triggered.",
						},
					},
				},
			},
		},
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        string(models.ToolTypeCancelOrder),
				Description: openai.String("Cancels an order if it has not yet been processed (status must be 'received')."),
				Parameters: shared.FunctionParameters{
					"type":     "object",
					"required": []string{"contact_number", "order_details"},
					"properties": map[string]interface{}{
						"contact_number": map[string]interface{}{
							"type":        "string",
							"description": "The WhatsApp number of the user who placed the order.",
						},
						"order_details": map[string]interface{}{
							"type":        "string",
							"description": "The exact item(s) in the order to be canceled (e.g., 'BBQ Ribs, Mojito').",
						},
					},
				},
			},
		},
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        string(models.ToolTypeCancelReservation),
				Description: openai.String("Cancels a reservation for a specific table made by a contact number, and marks the table as available again."),
				Parameters: shared.FunctionParameters{
					"type":     "object",
					"required": []string{"contact_number", "table_number"},
					"properties": map[string]interface{}{
						"contact_number": map[string]interface{}{
							"type":        "string",
							"description": "The WhatsApp number of the user who made the reservation.",
						},
						"table_number": map[string]interface{}{
							"type":        "integer",
							"description": "The number of the table to cancel the reservation for (e.g., 3).",
						},
					},
				},
			},
		},
		{
			Type: "function",
			Function: shared.FunctionDefinitionParam{
				Name:        string(models.ToolTypeSendFoodImage),
				Description: openai.String("Sends an image of a specific menu item (if exact match) or a paginated set of items (if category match). Handles both individual items and categories automatically."),
				Parameters: shared.FunctionParameters{
					"type":     "object",
					"required": []string{"query", "phone_number"},
					"properties": map[string]interface{}{
						"query": map[string]interface{}{
							"type":        "string",
							"description": "The name of the menu item (e.g., 'Pancakes', 'Tea') or category (e.g., 'breakfast', 'lunch', 'dinner', 'alcoholic', 'non-alcoholic', 'dessert', 'snacks')",
						},
						"phone_number": map[string]interface{}{
							"type":        "string",
							"description": "The user's WhatsApp phone number",
						},
						"page_number": map[string]interface{}{
							"type":        "integer",
							"description": "Page number for category results (default: 1)",
						},
					},
				},
			},
		},
	}
}

// recipientFields maps each tool to the argument that names the target
// customer. The model frequently omits it, so the sender's number is
// injected before parsing.
var recipientFields = map[models.ToolType]string{
	models.ToolTypeTriggerFlow:       "to_number",
	models.ToolTypeCancelOrder:       "contact_number",
	models.ToolTypeCancelReservation: "contact_number",
	models.ToolTypeSendFoodImage:     "phone_number",
}

// executeToolCall runs one AI-requested tool and returns its user-facing
// result text, if any.
func (r *Responder) executeToolCall(ctx context.Context, contactNumber string, call genai.ToolCall) (string, error) {
	tool := models.ToolType(call.Function.Name)
	raw := call.Function.Arguments
	if field, ok := recipientFields[tool]; ok {
		patched, err := injectRecipient(raw, field, contactNumber)
		if err != nil {
			return "", fmt.Errorf("failed to patch %s arguments: %w", call.Function.Name, err)
		}
		raw = patched
	}
	params, err := models.ParseToolParams(tool, raw)
	if err != nil {
		return "", fmt.Errorf("failed to parse %s arguments: %w", call.Function.Name, err)
	}

	switch p := params.(type) {
	case *models.TriggerFlowParams:
		if err := r.sender.TriggerFlow(ctx, *p, r.menu.FlowMenuItems()); err != nil {
			return "", err
		}
		return "", nil
	case *models.CancelOrderParams:
		return cancelOrderReply(r.store, p.ContactNumber, p.OrderDetails), nil
	case *models.CancelReservationParams:
		return cancelReservationReply(r.store, p.ContactNumber, p.TableNumber), nil
	case *models.SendFoodImageParams:
		status, err := r.menu.SendFoodImage(ctx, p.Query, p.PhoneNumber, p.PageNumber)
		if err != nil {
			return "", err
		}
		slog.Debug("Responder.executeToolCall: send_food_image done", "contact", contactNumber, "status", status)
		return "", nil
	default:
		return "", fmt.Errorf("tool %q not implemented", call.Function.Name)
	}
}

// injectRecipient fills in a missing or empty recipient field in raw tool
// arguments.
func injectRecipient(raw json.RawMessage, field, value string) (json.RawMessage, error) {
	var args map[string]interface{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if s, ok := args[field].(string); !ok || s == "" {
		args[field] = value
	}
	return json.Marshal(args)
}
