package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeBot struct {
	sent []tgbotapi.MessageConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, f.err
}

func TestTelegram(t *testing.T) {
	Convey("Given a Telegram notifier", t, func() {
		bot := &fakeBot{}
		n := newTelegram(bot, 42)
		ctx := context.Background()

		Convey("Notify sends the message to the configured chat", func() {
			So(n.Notify(ctx, "Backup on db succeeded"), ShouldBeNil)
			So(len(bot.sent), ShouldEqual, 1)
			So(bot.sent[0].ChatID, ShouldEqual, 42)
			So(bot.sent[0].Text, ShouldEqual, "Backup on db succeeded")
		})

		Convey("Long messages are truncated to the Telegram limit", func() {
			So(n.Notify(ctx, strings.Repeat("é", 5000)), ShouldBeNil)
			So(utf8.RuneCountInString(bot.sent[0].Text), ShouldEqual, maxMessageLength)
		})

		Convey("Send failures are wrapped", func() {
			bot.err = errors.New("forbidden")
			err := n.Notify(ctx, "x")
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "forbidden")
		})

		Convey("A cancelled context sends nothing", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			So(n.Notify(cancelled, "x"), ShouldEqual, context.Canceled)
			So(bot.sent, ShouldBeEmpty)
		})
	})

	Convey("Given an invalid chat id", t, func() {
		_, err := NewTelegram("token", "not-a-number")
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "invalid telegram chat id")
	})
}
