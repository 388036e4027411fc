package menu

import (
	"context"
	"testing"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/whatsapp"
)

type recordingSender struct {
	messages []string
	images   []string
	to       []string
}

func (r *recordingSender) SendMessage(ctx context.Context, to, body string) error {
	r.to = append(r.to, to)
	r.messages = append(r.messages, body)
	return nil
}

func (r *recordingSender) SendImage(ctx context.Context, to, imageURL, caption string) error {
	r.to = append(r.to, to)
	r.images = append(r.images, imageURL)
	return nil
}

func (r *recordingSender) TriggerFlow(ctx context.Context, params models.TriggerFlowParams, menuItems []whatsapp.FlowMenuItem) error {
	return nil
}

func seededService() (*Service, *recordingSender, *store.InMemoryStore) {
	st := store.NewInMemoryStore()
	st.AddMenuItem(models.MenuItem{ID: 1, Name: "Pancakes", Category: "breakfast", Price: 8, Available: true, ImageURL: "https://img/pancakes.jpg"})
	st.AddMenuItem(models.MenuItem{ID: 2, Name: "Tea", Category: "breakfast", Price: 3, Available: true, ImageURL: "https://img/tea.jpg"})
	st.AddMenuItem(models.MenuItem{ID: 3, Name: "BBQ Ribs", Category: "dinner", Price: 15.5, Available: true, ImageURL: "https://img/ribs.jpg"})
	sender := &recordingSender{}
	return NewService(st, sender), sender, st
}

func TestFormatMenuTextGroupsByCategory(t *testing.T) {
	items := []models.MenuItem{
		{Name: "Pancakes", Category: "breakfast", Price: 8},
		{Name: "Tea", Category: "breakfast", Price: 3},
		{Name: "BBQ Ribs", Category: "dinner", Price: 15.5},
	}
	text := FormatMenuText(items)
	want := "breakfast:\nPancakes - $8.00\nTea - $3.00\n\ndinner:\nBBQ Ribs - $15.50"
	if text != want {
		t.Errorf("unexpected menu text:\n%s", text)
	}
}

func TestFormatMenuTextEmpty(t *testing.T) {
	if got := FormatMenuText(nil); got != "Menu is currently unavailable. Please try again later." {
		t.Errorf("unexpected empty menu text: %q", got)
	}
}

func TestSendFoodImageExactMatch(t *testing.T) {
	svc, sender, _ := seededService()
	status, err := svc.SendFoodImage(context.Background(), "pancakes", "+15550001", 1)
	if err != nil {
		t.Fatalf("SendFoodImage failed: %v", err)
	}
	if status != "Sent image of Pancakes." {
		t.Errorf("unexpected status %q", status)
	}
	if len(sender.images) != 1 || sender.images[0] != "https://img/pancakes.jpg" {
		t.Errorf("unexpected images sent: %v", sender.images)
	}
}

func TestSendFoodImageCategory(t *testing.T) {
	svc, sender, _ := seededService()
	status, err := svc.SendFoodImage(context.Background(), "breakfast", "+15550001", 1)
	if err != nil {
		t.Fatalf("SendFoodImage failed: %v", err)
	}
	if status != "Sent breakfast items page 1." {
		t.Errorf("unexpected status %q", status)
	}
	if len(sender.images) != 2 {
		t.Errorf("expected 2 category images, got %d", len(sender.images))
	}
}

func TestSendFoodImageNoMatch(t *testing.T) {
	svc, sender, _ := seededService()
	status, err := svc.SendFoodImage(context.Background(), "cheesecake", "+15550001", 1)
	if err != nil {
		t.Fatalf("SendFoodImage failed: %v", err)
	}
	if status != `No menu item or category matches "cheesecake".` {
		t.Errorf("unexpected status %q", status)
	}
	if len(sender.images) != 0 {
		t.Errorf("expected no images, got %v", sender.images)
	}
}

func TestBroadcastDailyMenu(t *testing.T) {
	svc, sender, st := seededService()
	st.AddCustomer(models.Customer{ContactNumber: "+15550001"})
	st.AddCustomer(models.Customer{ContactNumber: "+15550002"})

	if err := svc.BroadcastDailyMenu(context.Background()); err != nil {
		t.Fatalf("BroadcastDailyMenu failed: %v", err)
	}
	if len(sender.messages) != 2 {
		t.Fatalf("expected 2 broadcast messages, got %d", len(sender.messages))
	}
	if want := "🌟 Today's Menu at Star Restaurant 🌟"; len(sender.messages[0]) == 0 || sender.messages[0][:len(want)] != want {
		t.Errorf("unexpected broadcast message: %q", sender.messages[0])
	}
}
