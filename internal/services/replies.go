package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Ananth-NQI/menubot-backend/internal/models"
)

// Fixed replies sent back through the channel.
const (
	ReplyAlreadyProcessed = "ℹ️ This message was already processed."
	ReplyUnknownSender    = "🔒 This number is not linked to any restaurant account."
	ReplyAudioUnsupported = "🎤 Voice messages can't be read yet. Please send your command as text."
	ReplyItemAdded        = "✅ Item added to the menu."
	ReplyCancelled        = "👍 Okay, the new item was discarded."
	ReplyConfirmOrCancel  = "Send *confirm* to save the item or *cancel* to discard it."

	ReplyAskName          = "📝 What's the name of the item?\nExample: Classic Burger"
	ReplyEmptyName        = "❌ The name can't be empty.\nExample: Classic Burger"
	ReplyInvalidPrice     = "❌ That doesn't look like a valid price. Send a number with at most two decimals.\nExample: 25.50"
	ReplyInvalidAvailable = "❌ Please answer *yes* or *no* (نعم / لا).\nExample: yes"

	ReplyHelp = `🍽️ *Menu assistant*

➕ *add item* - add a new item step by step
   add item name: Classic Burger price: 25 available: yes
💰 *edit price <item> to <price>*
   edit price classic burger to 27
🔛 *enable item <item>* / *disable item <item>*
   disable item fries
🔍 *search for <text>*
   search for burger

Send *cancel* at any time to stop adding an item.`
)

func replyAskPrice(name string) string {
	return fmt.Sprintf("💰 What's the price of *%s*?\nExample: 25", name)
}

func replyAskAvailable(name string) string {
	return fmt.Sprintf("🔛 Is *%s* available now? Answer *yes* or *no*.\nExample: yes", name)
}

func replySummary(form models.FormData) string {
	return fmt.Sprintf("📋 Please confirm the new item:\n\n• Name: %s\n• Price: %s\n• Available: %s\n\n%s",
		*form.Name, form.Price.String(), yesNo(*form.Available), ReplyConfirmOrCancel)
}

func replyAddFailed(err error) string {
	return "❌ Could not add the item: " + err.Error()
}

func replyUpdateFailed(err error) string {
	return "❌ Could not update the menu: " + err.Error()
}

func replySearchFailed(err error) string {
	return "❌ Search failed: " + err.Error()
}

func replyNoMatches(query string) string {
	return fmt.Sprintf("🤷 No menu items match \"%s\".", query)
}

func replyNoResults(query string) string {
	return fmt.Sprintf("🔍 No results for \"%s\".", query)
}

func replyPriceUpdated(items []models.MenuItem, price decimal.Decimal) string {
	return fmt.Sprintf("✅ Price set to %s for %d item(s):\n%s", price.String(), len(items), itemNames(items))
}

func replyAvailabilityUpdated(items []models.MenuItem, enable bool) string {
	verb := "Disabled"
	if enable {
		verb = "Enabled"
	}
	return fmt.Sprintf("✅ %s %d item(s):\n%s", verb, len(items), itemNames(items))
}

func replySearchResults(items []models.MenuItem) string {
	lines := make([]string, len(items))
	for i, item := range items {
		status := "unavailable"
		if item.Available {
			status = "available"
		}
		lines[i] = fmt.Sprintf("• %s — %s — %s", item.Name, item.Price.String(), status)
	}
	return strings.Join(lines, "\n")
}

func itemNames(items []models.MenuItem) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "• " + item.Name
	}
	return strings.Join(lines, "\n")
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
