package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/genai"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/menu"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/notify"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/whatsapp"
	"github.com/openai/openai-go"
)

// FunctionExecutedReply is returned when the AI ran tools but produced no
// follow-up text. The processor logs such turns as "[Function Triggered]".
const FunctionExecutedReply = "✅ Function executed. No additional message returned."

// aiErrorReply is the customer-facing fallback when the AI call fails.
const aiErrorReply = "⚠ Sorry, there was an error processing your request."

// historyTurnLimit bounds how much recent conversation is inlined into the
// system prompt.
const historyTurnLimit = 10

// noContextAvailable stands in for an empty session summary.
const noContextAvailable = "No previous context available."

// ToolChat generates chat completions with tool support.
type ToolChat interface {
	GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error)
}

// Responder answers free-form customer messages with the Taguta assistant
// persona, executing any tool calls the model requests.
type Responder struct {
	ai       ToolChat
	store    store.Store
	sender   whatsapp.MessageSender
	menu     *menu.Service
	notifier notify.Notifier
}

// NewResponder wires a Responder. notifier may be nil.
func NewResponder(ai ToolChat, st store.Store, sender whatsapp.MessageSender, menuSvc *menu.Service, notifier notify.Notifier) *Responder {
	if notifier == nil {
		notifier = notify.NoopNotifier{}
	}
	return &Responder{ai: ai, store: st, sender: sender, menu: menuSvc, notifier: notifier}
}

// Respond produces the assistant reply for userMessage. Tool calls requested
// by the model are executed; the reply is the model's text when present,
// otherwise the concatenated tool results, otherwise FunctionExecutedReply.
func (r *Responder) Respond(ctx context.Context, contactNumber, userMessage string) string {
	systemPrompt := r.buildSystemPrompt(contactNumber, userMessage)

	resp, err := r.ai.GenerateWithTools(ctx, []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(systemPrompt),
		openai.UserMessage(userMessage),
	}, assistantTools())
	if err != nil {
		slog.Error("Responder.Respond: completion failed", "contact", contactNumber, "error", err)
		return aiErrorReply
	}

	var toolResults []string
	for _, call := range resp.ToolCalls {
		slog.Info("Responder.Respond: executing tool", "contact", contactNumber, "tool", call.Function.Name)
		result, err := r.executeToolCall(ctx, contactNumber, call)
		if err != nil {
			slog.Error("Responder.Respond: tool failed", "contact", contactNumber, "tool", call.Function.Name, "error", err)
			continue
		}
		if result != "" {
			toolResults = append(toolResults, result)
		}
	}

	if reply := strings.TrimSpace(resp.Content); reply != "" {
		return reply
	}
	if len(toolResults) > 0 {
		return strings.Join(toolResults, "\n")
	}
	if len(resp.ToolCalls) > 0 {
		return FunctionExecutedReply
	}
	return aiErrorReply
}

// buildSystemPrompt assembles the Taguta persona with the stored session
// summary, recent history and today's menu inlined.
func (r *Responder) buildSystemPrompt(contactNumber, userMessage string) string {
	summary, err := r.store.GetMemory(contactNumber, models.SessionSummaryKey)
	if err != nil {
		slog.Warn("Responder.buildSystemPrompt: summary lookup failed", "contact", contactNumber, "error", err)
	}
	if summary == "" {
		summary = noContextAvailable
	}

	history := ""
	turns, err := r.store.GetRecentTurns(contactNumber, historyTurnLimit)
	if err != nil {
		slog.Warn("Responder.buildSystemPrompt: history lookup failed", "contact", contactNumber, "error", err)
	}
	if len(turns) > 0 {
		lines := make([]string, 0, len(turns))
		for _, t := range turns {
			lines = append(lines, fmt.Sprintf("User: %s | Bot: %s", t.Message, t.BotReply))
		}
		history = strings.Join(lines, "\n")
	}

	menuText := r.menu.MenuText()

	var b strings.Builder
	b.WriteString("You are Taguta, a highly intelligent and friendly customer assistant for Star Restaurant, ")
	b.WriteString("a renowned establishment known for its exceptional dining experiences. ")
	b.WriteString("Star Restaurant is located at 123 Drive Harare, with the best chefs and 8 friendly waitresses. ")
	b.WriteString("We value kindness, quality, and fun. Your primary goal is to assist customers with orders, ")
	b.WriteString("booking, and general questions. Your responses should be concise and straight to the point. ")
	b.WriteString("Use a maximum of 20 words unless necessary. You maintain efficiency, politeness, and professionalism.\n\n")

	fmt.Fprintf(&b, "📌 **Context from Previous Messages:**\n%s\n\n", summary)
	fmt.Fprintf(&b, "📜 **Full Conversation History:**\n%s\n\n", history)
	fmt.Fprintf(&b, "🔵 **Current User Message:**\nUser: %s\n\n", userMessage)
	b.WriteString("Your response should continue the conversation smoothly.\n\n")

	b.WriteString("1. **Greeting Customers**\n")
	b.WriteString("   - Greet customers warmly with their name during the first interaction.\n")
	b.WriteString("   - Avoid repeating introductory greetings unless explicitly asked.\n\n")

	b.WriteString("2. **Handling Orders**\n")
	b.WriteString("   - Users can only order from the current menu.\n")
	fmt.Fprintf(&b, "   - Today's menu:\n%s\n\n", menuText)
	b.WriteString("   - If the user expresses interest in placing an order (e.g., 'I want food', 'Can I get something to eat?', 'I want ribs'),\n")
	b.WriteString("     you must call the `trigger_whatsapp_flow` function using:\n")
	b.WriteString("     - `message`: '🛒 Let's place your order! Click below to start the process.'\n")
	b.WriteString("     - `flow_cta`: 'Start Order'\n")
	b.WriteString("     - `flow_name`: 'order_flow'\n")
	b.WriteString("     - `to_number`: the user's WhatsApp number.\n")
	b.WriteString("   - Do not ask the user to type anything — just trigger the flow directly using the function.\n\n")

	b.WriteString("3. **Table Bookings**\n")
	b.WriteString("   - Total number of tables: **1, 2, 3, 4, 5**.\n")
	b.WriteString("     - Tables **1–3 are indoors**, Tables **4–5 are outdoors**.\n")
	b.WriteString("   - If the user wants to book a table (e.g., 'reserve a table', 'book table', 'I need a dinner table'), ")
	b.WriteString("you must call the `trigger_whatsapp_flow` function using:\n")
	b.WriteString("     - `message`: '🍽️ Let's book your table! Click below to start your reservation.'\n")
	b.WriteString("     - `flow_cta`: 'Start Booking'\n")
	b.WriteString("     - `flow_name`: 'reservation'\n")
	b.WriteString("     - `to_number`: the user's WhatsApp number\n")
	b.WriteString("   - Do not ask the user to type anything. Trigger the flow automatically.\n")
	b.WriteString("   - Also, if the user receives a message saying a selected table is unavailable or already booked, ")
	b.WriteString("automatically re-trigger the `trigger_whatsapp_flow` function with the same values above so they can choose another table.\n\n")

	b.WriteString("4. **Handling Menu Queries**\n")
	b.WriteString("   - If the user asks about the menu (e.g., 'What's on the menu?', 'Show me the menu', 'What can I order?'), ")
	b.WriteString("you must provide the daily menu information.\n")
	fmt.Fprintf(&b, "   - This is what's on Today's menu:\n%s\n\n", menuText)
	b.WriteString("   - If the user mentions a specific food item (e.g., \"tea\", \"buns\", \"ribs\"), or a known food category (e.g., \"breakfast\", \"dessert\", \"snacks\"):\n")
	b.WriteString("     - Available categories: breakfast, lunch, dinner, alcoholic, non-alcoholic, dessert, snacks\n")
	b.WriteString("     - 'alcoholic' is for alcoholic beverages, 'non-alcoholic' is for non-alcoholic beverages\n")
	b.WriteString("     You must call the send_food_image function:\n")
	b.WriteString("     - For specific items: sends individual item image if exact match found\n")
	b.WriteString("     - For categories: sends paginated grid of all items in that category\n")
	b.WriteString("     Parameters:\n")
	b.WriteString("     - `query`: the food item or category name (string)\n")
	b.WriteString("     - `phone_number`: the user's WhatsApp number\n")
	b.WriteString("     - `page_number`: optional, defaults to 1 for category grids\n")
	b.WriteString("     Always send only one food item or one category per call.\n")
	b.WriteString("     If the user mentions multiple items or categories (e.g., \"buns and tea\"), you must call the function separately for each one.\n")
	b.WriteString("     Do not ask for confirmation if the query clearly matches an item or category.\n")
	b.WriteString("     If the user expresses an intent to place an order, follow Rule 2 and trigger the order_flow using trigger_whatsapp_flow.\n")
	b.WriteString("   - If the user asks for a specific item that is not on the menu, respond politely and suggest alternatives:\n")
	b.WriteString("     - Example: 'Do you have cheesecake?'\n")
	b.WriteString("       - Agent: 'Eish, sorry 🤦🏾‍♀, unfortunately, we do not have cheesecake, but here are our other delectable desserts.'\n")
	b.WriteString("       - Then call: send_food_image(query=\"dessert\", phone_number=...)\n\n")

	b.WriteString("5. **Providing Support for Special Requests**\n")
	b.WriteString("   - Handle customer queries about allergies, preferences, or special occasions.\n\n")

	b.WriteString("6. **Cancelling Orders and Reservations**\n")
	b.WriteString("   - If the user says anything like 'cancel my order' or 'I want to cancel BBQ Ribs', ")
	b.WriteString("you must call the `cancel_order` function using:\n")
	b.WriteString("     - `contact_number`: the user's WhatsApp number\n")
	b.WriteString("     - `order_details`: the item(s) to cancel, e.g., 'BBQ Ribs'\n")
	b.WriteString("   - Only cancel if the order status is 'received'.\n")
	b.WriteString("   - Do not ask the user to repeat their order if they have mentioned it in their request — extract it from their message.\n")
	b.WriteString("   - Respond with the result of the cancel_order function.\n")
	b.WriteString("   - If the user expresses intent to cancel a reservation, extract the table number and immediately call the cancel_reservation function with:\n")
	b.WriteString("     - `contact_number`: the user's WhatsApp number\n")
	b.WriteString("     - `table_number`: the table they want to cancel\n")
	b.WriteString("   - If the user wants to cancel but didn't mention a table number, reply politely and ask: 'Sure, which table should I cancel for you?'\n")
	b.WriteString("   - Never ask for confirmation if a table number is already provided — proceed with cancellation immediately.\n")
	b.WriteString("   - Always reply with the output returned by the cancel_reservation function.\n")
	b.WriteString("   - Handle typos and informal language like 'cncl table 3' or 'cancel tbl 1 pls'.\n")
	b.WriteString("   - If the user says a single digit (e.g. '2') and the previous intent was cancellation or booking, treat the number as a table number unless the user refers to food or quantity.\n\n")

	b.WriteString("7. **Resolving Unclear Messages**\n")
	b.WriteString("   - If a message is unclear, politely ask for clarification.\n\n")

	b.WriteString("8. **Tone and Personality**\n")
	b.WriteString("   - Maintain a polite, friendly, and professional tone.\n")
	b.WriteString("   - Express gratitude frequently to build a positive rapport.\n")
	b.WriteString("   - Add the customer's name to the farewell message.\n")
	b.WriteString("   - Example: 'Thank you for choosing Star Restaurant, [Customer Name]! We are delighted to assist you!'\n")
	b.WriteString("   - Stay patient and adaptable to customer needs.")

	return b.String()
}
