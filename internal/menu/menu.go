// Package menu formats the restaurant menu for prompts and messages and
// answers food-image queries from the AI responder.
package menu

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/whatsapp"
)

// CategoryPageSize is how many items of a category are sent per page.
const CategoryPageSize = 4

// knownCategories are the food-image query categories the assistant offers.
var knownCategories = map[string]bool{
	"breakfast":     true,
	"lunch":         true,
	"dinner":        true,
	"alcoholic":     true,
	"non-alcoholic": true,
	"dessert":       true,
	"snacks":        true,
}

// Service answers menu queries and sends food images.
type Service struct {
	store  store.Store
	sender whatsapp.MessageSender
}

// NewService creates a menu service.
func NewService(st store.Store, sender whatsapp.MessageSender) *Service {
	return &Service{store: st, sender: sender}
}

// FormatMenuText renders the available menu grouped by category, for
// embedding into the assistant's system prompt and broadcasts.
func FormatMenuText(items []models.MenuItem) string {
	if len(items) == 0 {
		return "Menu is currently unavailable. Please try again later."
	}
	var b strings.Builder
	var current string
	for _, item := range items {
		if item.Category != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = item.Category
			b.WriteString(current + ":\n")
		}
		fmt.Fprintf(&b, "%s - $%.2f\n", item.Name, item.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}

// MenuText loads the available menu and formats it. Store failures degrade
// to the unavailable notice so prompt assembly never fails.
func (s *Service) MenuText() string {
	items, err := s.store.GetMenu()
	if err != nil {
		slog.Error("Service.MenuText failed to load menu", "error", err)
		return "Menu is currently unavailable. Please try again later."
	}
	return FormatMenuText(items)
}

// DailyMenuReply renders the customer-facing reply for an explicit menu
// request.
func (s *Service) DailyMenuReply() string {
	items, err := s.store.GetMenu()
	if err != nil {
		slog.Error("Service.DailyMenuReply failed to load menu", "error", err)
		return "Sorry, today's menu is not available."
	}
	if len(items) == 0 {
		return "Sorry, today's menu is not available."
	}
	var b strings.Builder
	b.WriteString("Here is today's menu:\n\n")
	var current string
	for _, item := range items {
		if item.Category != current {
			if current != "" {
				b.WriteString("\n")
			}
			current = item.Category
			fmt.Fprintf(&b, "*%s:*\n", current)
		}
		fmt.Fprintf(&b, "%s - $%.2f\n", item.Name, item.Price)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FlowMenuItems converts the available menu into flow entry-screen options.
func (s *Service) FlowMenuItems() []whatsapp.FlowMenuItem {
	items, err := s.store.GetMenu()
	if err != nil {
		slog.Error("Service.FlowMenuItems failed to load menu", "error", err)
		return nil
	}
	options := make([]whatsapp.FlowMenuItem, 0, len(items))
	for _, item := range items {
		options = append(options, whatsapp.FlowMenuItem{
			ID:    item.Name,
			Title: fmt.Sprintf("%s - $%.2f", item.Name, item.Price),
		})
	}
	return options
}

// SendFoodImage sends the image for an exact menu item match, or a page of
// images for a category match. Returns a status string for the AI tool loop.
func (s *Service) SendFoodImage(ctx context.Context, query, phoneNumber string, pageNumber int) (string, error) {
	query = strings.TrimSpace(query)
	if pageNumber < 1 {
		pageNumber = 1
	}

	item, err := s.store.FindMenuItem(query)
	if err != nil {
		return "", fmt.Errorf("failed to look up menu item %q: %w", query, err)
	}
	if item != nil {
		if item.ImageURL == "" {
			return fmt.Sprintf("No image available for %s.", item.Name), nil
		}
		caption := fmt.Sprintf("%s - $%.2f", item.Name, item.Price)
		if err := s.sender.SendImage(ctx, phoneNumber, item.ImageURL, caption); err != nil {
			return "", err
		}
		return fmt.Sprintf("Sent image of %s.", item.Name), nil
	}

	if !knownCategories[strings.ToLower(query)] {
		return fmt.Sprintf("No menu item or category matches %q.", query), nil
	}
	items, err := s.store.ListMenuByCategory(query)
	if err != nil {
		return "", fmt.Errorf("failed to list category %q: %w", query, err)
	}
	if len(items) == 0 {
		return fmt.Sprintf("No items available in the %s category right now.", query), nil
	}

	start := (pageNumber - 1) * CategoryPageSize
	if start >= len(items) {
		return fmt.Sprintf("No more %s items; the category has %d page(s).", query, pageCount(len(items))), nil
	}
	end := start + CategoryPageSize
	if end > len(items) {
		end = len(items)
	}
	for _, item := range items[start:end] {
		if item.ImageURL == "" {
			continue
		}
		caption := fmt.Sprintf("%s - $%.2f", item.Name, item.Price)
		if err := s.sender.SendImage(ctx, phoneNumber, item.ImageURL, caption); err != nil {
			slog.Error("Service.SendFoodImage failed to send category image", "error", err, "item", item.Name)
		}
	}
	if end < len(items) {
		msg := fmt.Sprintf("That's page %d of %d for %s. Ask for the next page to see more.", pageNumber, pageCount(len(items)), query)
		if err := s.sender.SendMessage(ctx, phoneNumber, msg); err != nil {
			slog.Error("Service.SendFoodImage failed to send pagination notice", "error", err)
		}
	}
	return fmt.Sprintf("Sent %s items page %d.", query, pageNumber), nil
}

// BroadcastDailyMenu sends the daily menu to every known customer. Send
// failures are logged per recipient and do not stop the broadcast.
func (s *Service) BroadcastDailyMenu(ctx context.Context) error {
	numbers, err := s.store.ListCustomerNumbers()
	if err != nil {
		return fmt.Errorf("failed to list customers for broadcast: %w", err)
	}
	message := "🌟 Today's Menu at Star Restaurant 🌟\n\n" + s.MenuText()
	for _, number := range numbers {
		if err := s.sender.SendMessage(ctx, number, message); err != nil {
			slog.Error("Service.BroadcastDailyMenu failed to send", "error", err, "to", number)
		}
	}
	slog.Info("Service.BroadcastDailyMenu completed", "recipients", len(numbers))
	return nil
}

func pageCount(total int) int {
	return (total + CategoryPageSize - 1) / CategoryPageSize
}
