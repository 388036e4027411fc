package flow

import (
	"context"
	"strings"
	"testing"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
)

const testContact = "+263771234567"

func TestEngineDeliveryHappyPath(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := NewEngine(st, nil)
	ctx := context.Background()

	reply := engine.Handle(ctx, testContact, "Order: BBQ Ribs, Mojito")
	if !strings.Contains(reply, "has been received") {
		t.Fatalf("start reply = %q, want order-received confirmation", reply)
	}
	if reply := engine.Handle(ctx, testContact, "yes"); reply != msgAskName {
		t.Fatalf("delivery confirmation reply = %q, want name prompt", reply)
	}
	if reply := engine.Handle(ctx, testContact, "Jane"); reply != msgAskLocation {
		t.Fatalf("name reply = %q, want location prompt", reply)
	}
	if reply := engine.Handle(ctx, testContact, "123 Main St"); reply != msgAskTime {
		t.Fatalf("location reply = %q, want time prompt", reply)
	}
	reply = engine.Handle(ctx, testContact, "max")
	if !strings.Contains(reply, "Preferred Time: Max") {
		t.Fatalf("final reply = %q, want delivery summary with time Max", reply)
	}

	orders := st.Orders()
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want exactly 1", len(orders))
	}
	o := orders[0]
	if !o.Delivery {
		t.Error("expected delivery enabled")
	}
	if o.DeliveryName != "Jane" {
		t.Errorf("DeliveryName = %q, want %q", o.DeliveryName, "Jane")
	}
	if o.DeliveryLocation != "123 Main St" {
		t.Errorf("DeliveryLocation = %q, want %q", o.DeliveryLocation, "123 Main St")
	}
	if o.DeliveryTime != "Max" {
		t.Errorf("DeliveryTime = %q, want %q", o.DeliveryTime, "Max")
	}

	state, _, err := st.GetFlowState(testContact)
	if err != nil {
		t.Fatalf("GetFlowState: %v", err)
	}
	if state != models.FlowStateNone {
		t.Errorf("flow state = %q, want cleared", state)
	}
}

func TestEnginePickupShortCircuit(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := NewEngine(st, nil)
	ctx := context.Background()

	engine.Handle(ctx, testContact, "Order: BBQ Ribs")
	reply := engine.Handle(ctx, testContact, "no")
	if !strings.Contains(reply, "awaiting collection") {
		t.Fatalf("pickup reply = %q, want collection confirmation", reply)
	}

	orders := st.Orders()
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want exactly 1", len(orders))
	}
	if orders[0].Delivery {
		t.Error("expected delivery disabled for pickup")
	}
	if orders[0].DeliveryName != "" {
		t.Errorf("DeliveryName = %q, want empty; pickup must not collect details", orders[0].DeliveryName)
	}

	state, _, _ := st.GetFlowState(testContact)
	if state != models.FlowStateNone {
		t.Errorf("flow state = %q, want cleared", state)
	}
}

func TestEngineRepromptsWithoutTransition(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := NewEngine(st, nil)
	ctx := context.Background()

	if reply := engine.Handle(ctx, testContact, "i want food"); reply != msgHowToOrder {
		t.Fatalf("start re-prompt = %q, want how-to-order instruction", reply)
	}

	engine.Handle(ctx, testContact, "Order: Mojito")
	if reply := engine.Handle(ctx, testContact, "maybe"); reply != msgDeliveryYesNo {
		t.Fatalf("delivery re-prompt = %q, want yes/no prompt", reply)
	}
	state, _, _ := st.GetFlowState(testContact)
	if state != models.FlowStateDeliveryConfirmation {
		t.Errorf("flow state = %q, want unchanged delivery_confirmation", state)
	}

	engine.Handle(ctx, testContact, "yes")
	engine.Handle(ctx, testContact, "Jane")
	engine.Handle(ctx, testContact, "123 Main St")
	if reply := engine.Handle(ctx, testContact, "whenever"); reply != msgInvalidTime {
		t.Fatalf("time re-prompt = %q, want valid-forms prompt", reply)
	}
	if len(st.Orders()) != 0 {
		t.Error("no order may be persisted before a valid time is given")
	}
}

func TestEngineCustomTimeKeepsCasing(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := NewEngine(st, nil)
	ctx := context.Background()

	engine.Handle(ctx, testContact, "Order: Mojito")
	engine.Handle(ctx, testContact, "yes")
	engine.Handle(ctx, testContact, "Jane")
	engine.Handle(ctx, testContact, "123 Main St")
	engine.Handle(ctx, testContact, "custom 3 Hours")

	orders := st.Orders()
	if len(orders) != 1 {
		t.Fatalf("got %d orders, want exactly 1", len(orders))
	}
	if orders[0].DeliveryTime != "Custom - 3 Hours" {
		t.Errorf("DeliveryTime = %q, want %q", orders[0].DeliveryTime, "Custom - 3 Hours")
	}
}

func TestEngineClearedStateRestarts(t *testing.T) {
	st := store.NewInMemoryStore()
	engine := NewEngine(st, nil)
	ctx := context.Background()

	engine.Handle(ctx, testContact, "Order: Mojito")
	if err := st.DeleteFlowState(testContact); err != nil {
		t.Fatalf("DeleteFlowState: %v", err)
	}
	if reply := engine.Handle(ctx, testContact, "yes"); reply != msgHowToOrder {
		t.Fatalf("reply after cleared state = %q, want start instruction", reply)
	}
}
