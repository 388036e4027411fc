package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/genai"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/menu"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/session"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/whatsapp"
	"github.com/openai/openai-go"
)

type sentMessage struct {
	to   string
	body string
}

type stubSender struct {
	messages []sentMessage
	flows    []models.TriggerFlowParams
}

func (s *stubSender) SendMessage(ctx context.Context, to, body string) error {
	s.messages = append(s.messages, sentMessage{to: to, body: body})
	return nil
}

func (s *stubSender) SendImage(ctx context.Context, to, imageURL, caption string) error {
	return nil
}

func (s *stubSender) TriggerFlow(ctx context.Context, params models.TriggerFlowParams, menuItems []whatsapp.FlowMenuItem) error {
	s.flows = append(s.flows, params)
	return nil
}

type stubAI struct {
	resp *genai.ToolCallResponse
	err  error
}

func (s *stubAI) GenerateWithTools(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion, tools []openai.ChatCompletionToolParam) (*genai.ToolCallResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

type processorFixture struct {
	processor *Processor
	store     *store.InMemoryStore
	sender    *stubSender
	ai        *stubAI
}

func newProcessorFixture(t *testing.T) *processorFixture {
	t.Helper()
	st := store.NewInMemoryStore()
	st.AddTable(models.Table{Number: 1, Capacity: 4, Available: true})
	st.AddTable(models.Table{Number: 2, Capacity: 2, Available: true})
	st.AddMenuItem(models.MenuItem{Name: "BBQ Ribs", Category: "dinner", Price: 15, Available: true})
	st.AddMenuItem(models.MenuItem{Name: "Mojito", Category: "alcoholic", Price: 6, Available: true})
	st.AddCustomer(models.Customer{ContactNumber: testContact, Name: "Jane"})

	sender := &stubSender{}
	ai := &stubAI{resp: &genai.ToolCallResponse{Content: "How can I help?"}}
	menuSvc := menu.NewService(st, sender)
	engine := NewEngine(st, nil)
	router := NewRouter(st, nil)
	supervisor := NewSupervisor(st, &fakeSummarizer{summary: "recap"}, DefaultInactivityThreshold)
	responder := NewResponder(ai, st, sender, menuSvc, nil)
	sessions := session.NewManager(0)

	return &processorFixture{
		processor: NewProcessor(st, sessions, engine, router, supervisor, responder, menuSvc, sender, nil),
		store:     st,
		sender:    sender,
		ai:        ai,
	}
}

func (f *processorFixture) process(t *testing.T, text string) []sentMessage {
	t.Helper()
	f.sender.messages = nil
	f.processor.ProcessMessage(context.Background(), &whatsapp.Incoming{From: testContact, Text: text})
	return f.sender.messages
}

func TestProcessMessageBookingInstructions(t *testing.T) {
	f := newProcessorFixture(t)
	msgs := f.process(t, "book table")
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want instructions plus template", len(msgs))
	}
	if msgs[0].body != msgBookingInstructions {
		t.Errorf("first message = %q, want booking instructions", msgs[0].body)
	}
	if msgs[1].body != msgBookingTemplate {
		t.Errorf("second message = %q, want booking template", msgs[1].body)
	}
}

func TestProcessMessageFilledBookingForm(t *testing.T) {
	f := newProcessorFixture(t)
	form := "Reservation Name: Jane Doe\n" +
		"Date for Booking: 25 June\n" +
		"Time for Booking: 2 PM\n" +
		"Number of People: 4\n" +
		"Table Number: 1"

	msgs := f.process(t, form)
	if len(msgs) != 1 || !strings.Contains(msgs[0].body, "Booking confirmed") {
		t.Fatalf("messages = %+v, want booking confirmation", msgs)
	}
	if len(f.store.Reservations()) != 1 {
		t.Error("expected one reservation persisted")
	}
}

func TestProcessMessageMalformedBookingForm(t *testing.T) {
	f := newProcessorFixture(t)
	msgs := f.process(t, "reservation name: jane, tomorrow please")
	if len(msgs) != 1 || msgs[0].body != msgBookingFormatError {
		t.Fatalf("messages = %+v, want template guidance", msgs)
	}
	if len(f.store.Reservations()) != 0 {
		t.Error("malformed form must not create a reservation")
	}
}

func TestProcessMessageFlowTriggers(t *testing.T) {
	f := newProcessorFixture(t)

	f.process(t, "reserve table")
	if len(f.sender.flows) != 1 {
		t.Fatalf("got %d flow triggers, want 1", len(f.sender.flows))
	}
	got := f.sender.flows[0]
	if got.FlowName != models.FlowNameReservation || got.FlowCTA != "Start Booking" || got.Message != msgReservationFlowInvite {
		t.Errorf("reservation trigger = %+v", got)
	}

	f.process(t, "place order")
	if len(f.sender.flows) != 2 {
		t.Fatalf("got %d flow triggers, want 2", len(f.sender.flows))
	}
	got = f.sender.flows[1]
	if got.FlowName != models.FlowNameOrder || got.FlowCTA != "Start Order" || got.Message != msgOrderFlowInvite {
		t.Errorf("order trigger = %+v", got)
	}
}

func TestProcessMessageCancelOrderGuidance(t *testing.T) {
	f := newProcessorFixture(t)
	msgs := f.process(t, "cancel order")
	if len(msgs) != 1 || msgs[0].body != msgCancelOrderGuidance {
		t.Fatalf("messages = %+v, want cancel-order guidance", msgs)
	}
}

func TestProcessMessageCancelOrderStates(t *testing.T) {
	f := newProcessorFixture(t)
	if err := f.store.SaveOrder(&models.Order{ContactNumber: testContact, OrderDetails: "mojito"}); err != nil {
		t.Fatalf("SaveOrder: %v", err)
	}

	msgs := f.process(t, "cancel order for mojito")
	if len(msgs) != 1 || !strings.Contains(msgs[0].body, "successfully canceled") {
		t.Fatalf("messages = %+v, want cancellation confirmation", msgs)
	}

	// Cancelled is no longer "received"; the retry shares the not-found reply.
	msgs = f.process(t, "cancel order for mojito")
	if len(msgs) != 1 || !strings.Contains(msgs[0].body, "in 'received' status") {
		t.Fatalf("messages = %+v, want received-status rejection", msgs)
	}
}

func TestProcessMessageCancelReservationAuthorization(t *testing.T) {
	f := newProcessorFixture(t)
	if err := f.store.SaveReservation(&models.Reservation{
		Name: "Someone Else", ContactNumber: "+263770000000", ReservationAt: "25 June at 2pm",
		NumberOfPeople: 2, TableNumber: 1,
	}); err != nil {
		t.Fatalf("SaveReservation: %v", err)
	}

	msgs := f.process(t, "cancel reservation for table 1")
	if len(msgs) != 1 || msgs[0].body != "❌ You are not authorized to cancel this reservation." {
		t.Fatalf("messages = %+v, want authorization rejection", msgs)
	}
	if len(f.store.Reservations()) != 1 {
		t.Error("unauthorized cancel must not delete the reservation")
	}
}

func TestProcessMessageResetIsIdempotent(t *testing.T) {
	f := newProcessorFixture(t)

	first := f.process(t, "clear context")
	second := f.process(t, "clear context")
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("replies = %d/%d, want one each", len(first), len(second))
	}
	if first[0].body != msgContextCleared || second[0].body != first[0].body {
		t.Errorf("replies differ: %q vs %q", first[0].body, second[0].body)
	}
	state, draft, err := f.store.GetFlowState(testContact)
	if err != nil {
		t.Fatalf("GetFlowState: %v", err)
	}
	if state != models.FlowStateNone || draft != nil {
		t.Errorf("state = %q draft = %+v, want everything cleared", state, draft)
	}
}

func TestProcessMessageLegacyOrderTemplates(t *testing.T) {
	f := newProcessorFixture(t)

	msgs := f.process(t, "make order")
	if len(msgs) != 1 || msgs[0].body != msgDeliveryChoice {
		t.Fatalf("messages = %+v, want delivery choice prompt", msgs)
	}
	msgs = f.process(t, "1y")
	if len(msgs) != 2 || msgs[0].body != msgDeliveryOrderInstructions || msgs[1].body != msgDeliveryOrderTemplate {
		t.Fatalf("messages = %+v, want delivery instructions and template", msgs)
	}
	msgs = f.process(t, "2n")
	if len(msgs) != 2 || msgs[0].body != msgPickupOrderInstructions || msgs[1].body != msgPickupOrderTemplate {
		t.Fatalf("messages = %+v, want pickup instructions and template", msgs)
	}
}

func TestProcessMessageOrderFormDelivery(t *testing.T) {
	f := newProcessorFixture(t)
	form := "Order Form:\n" +
		"Order: BBQ Ribs, Mojito\n" +
		"Delivery: Yes\n" +
		"Name: Emelda\n" +
		"Location: 123 Main St\n" +
		"Time: 8 PM"

	msgs := f.process(t, form)
	if len(msgs) != 1 || !strings.Contains(msgs[0].body, "Order Confirmed!") {
		t.Fatalf("messages = %+v, want delivery confirmation", msgs)
	}
	orders := f.store.Orders()
	if len(orders) != 1 || !orders[0].Delivery {
		t.Fatalf("orders = %+v, want one delivery order", orders)
	}
}

func TestProcessMessageOrderFormUnavailableItems(t *testing.T) {
	f := newProcessorFixture(t)
	form := "Order Form:\nOrder: Oysters\nDelivery: No\n"

	msgs := f.process(t, form)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	body := msgs[0].body
	if !strings.Contains(body, "not available: oysters") || !strings.Contains(body, "BBQ Ribs, Mojito") {
		t.Fatalf("reply = %q, want unavailable notice listing the current menu", body)
	}
	if len(f.store.Orders()) != 0 {
		t.Error("order with unavailable items must not be persisted")
	}
}

func TestProcessMessageFreeTextOrderFlow(t *testing.T) {
	f := newProcessorFixture(t)

	msgs := f.process(t, "Order: BBQ Ribs")
	if len(msgs) != 1 || !strings.Contains(msgs[0].body, "has been received") {
		t.Fatalf("messages = %+v, want order-received reply", msgs)
	}
	// Mid-flow free text is owned by the engine.
	msgs = f.process(t, "no")
	if len(msgs) != 1 || !strings.Contains(msgs[0].body, "awaiting collection") {
		t.Fatalf("messages = %+v, want pickup confirmation", msgs)
	}
	if len(f.store.Orders()) != 1 {
		t.Error("expected exactly one order persisted by the flow")
	}
}

func TestProcessMessageMenuQuery(t *testing.T) {
	f := newProcessorFixture(t)
	msgs := f.process(t, "what's on the menu")
	if len(msgs) != 1 || !strings.Contains(msgs[0].body, "Here is today's menu:") {
		t.Fatalf("messages = %+v, want the daily menu", msgs)
	}
	if !strings.Contains(msgs[0].body, "BBQ Ribs - $15.00") {
		t.Errorf("menu reply = %q, want priced items", msgs[0].body)
	}
}

func TestProcessMessageGreetingDecoration(t *testing.T) {
	f := newProcessorFixture(t)
	msgs := f.process(t, "hello")
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if !strings.HasPrefix(msgs[0].body, "Hello Jane! ") {
		t.Errorf("reply = %q, want greeting decorated with the customer name", msgs[0].body)
	}
}

func TestProcessMessageFarewellDecoration(t *testing.T) {
	f := newProcessorFixture(t)
	msgs := f.process(t, "bye")
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if !strings.HasSuffix(msgs[0].body, " Goodbye Jane!") {
		t.Errorf("reply = %q, want farewell decorated with the customer name", msgs[0].body)
	}
}

func TestProcessMessageStructuredSubmission(t *testing.T) {
	f := newProcessorFixture(t)
	f.sender.messages = nil
	f.processor.ProcessMessage(context.Background(), &whatsapp.Incoming{
		From: testContact,
		FlowAnswers: map[string]interface{}{
			"screen_0_Order_Item_0": []interface{}{"0_BBQ Ribs"},
			"screen_0_Delivery_1":   "1_No",
		},
	})
	if len(f.sender.messages) != 1 || !strings.Contains(f.sender.messages[0].body, "placed successfully") {
		t.Fatalf("messages = %+v, want order confirmation", f.sender.messages)
	}
	if len(f.store.Orders()) != 1 {
		t.Error("expected the submission to persist one order")
	}
}

func TestProcessMessageToolOnlyReplyLoggedAsMarker(t *testing.T) {
	f := newProcessorFixture(t)
	f.ai.resp = &genai.ToolCallResponse{
		ToolCalls: []genai.ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: genai.FunctionCall{
				Name:      string(models.ToolTypeTriggerFlow),
				Arguments: []byte(`{"message":"🛒 Let's place your order! Click below to start the process.","flow_cta":"Start Order","flow_name":"order_flow"}`),
			},
		}},
	}

	msgs := f.process(t, "i want some food please")
	if len(msgs) != 1 || msgs[0].body != FunctionExecutedReply {
		t.Fatalf("messages = %+v, want the function-executed reply", msgs)
	}
	if len(f.sender.flows) != 1 {
		t.Fatalf("got %d flow triggers, want 1", len(f.sender.flows))
	}
	if f.sender.flows[0].ToNumber != testContact {
		t.Errorf("flow recipient = %q, want the sender injected", f.sender.flows[0].ToNumber)
	}

	turns, err := f.store.GetRecentTurns(testContact, 10)
	if err != nil {
		t.Fatalf("GetRecentTurns: %v", err)
	}
	last := turns[len(turns)-1]
	if last.BotReply != functionTriggeredMarker {
		t.Errorf("logged reply = %q, want %q", last.BotReply, functionTriggeredMarker)
	}
}
