package adapter

import "context"

// InlineButton is one key of an inline keyboard. Exactly one of URL or Data
// should be set; URL wins when both are.
type InlineButton struct {
	Text string
	Data string
	URL  string
}

// LinkButton opens url in the seller's browser.
func LinkButton(text, url string) InlineButton { return InlineButton{Text: text, URL: url} }

// ActionButton sends data back to the bot as a callback query.
func ActionButton(text, data string) InlineButton { return InlineButton{Text: text, Data: data} }

// Keyboard lays buttons out one per row.
func Keyboard(buttons ...InlineButton) [][]InlineButton {
	rows := make([][]InlineButton, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineButton{b})
	}
	return rows
}

// TelegramBotAdapter delivers seller notifications to a linked chat.
type TelegramBotAdapter interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
	SendButtons(ctx context.Context, chatID int64, text string, rows [][]InlineButton) error
}
