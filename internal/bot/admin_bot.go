package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"telegram_tapper/internal/domain"
	"telegram_tapper/internal/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
)

const (
	commandTimeout = 30 * time.Second
	defaultTop     = 10
	maxTop         = 50
	historyLimit   = 10
)

type Players interface {
	PlayerByTelegramID(ctx context.Context, telegramID int64) (*domain.Player, error)
}

type Ranking interface {
	Top(ctx context.Context, limit int) ([]domain.TopPlayer, error)
}

type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
	Pending() int
}

type History interface {
	History(ctx context.Context, playerID uuid.UUID, limit int) ([]*domain.AuditEntry, error)
}

// Deps are the operations the bot exposes. History may be nil.
type Deps struct {
	Players Players
	Ranking Ranking
	Sweeper Sweeper
	History History
}

// AdminBot answers operator commands sent from whitelisted telegram accounts.
type AdminBot struct {
	bot      *tgbotapi.BotAPI
	deps     Deps
	adminIDs []int64
	stopCh   chan struct{}
	wg       sync.WaitGroup
	log      *slog.Logger
}

func NewAdminBot(token string, deps Deps, adminIDs []int64) (*AdminBot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log := logger.With("component", "admin_bot")
	log.Info("admin bot authorized", "username", bot.Self.UserName)

	return &AdminBot{
		bot:      bot,
		deps:     deps,
		adminIDs: adminIDs,
		stopCh:   make(chan struct{}),
		log:      log,
	}, nil
}

// Start listens for commands until Stop.
func (b *AdminBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || msg.From == nil || !msg.IsCommand() || !b.isAdmin(msg.From.ID) {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(msg)
		}
	}
}

// Stop gracefully stops the bot
func (b *AdminBot) Stop() {
	b.log.Info("stopping admin bot...")
	close(b.stopCh)
	b.bot.StopReceivingUpdates()

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AdminBot) isAdmin(userID int64) bool {
	for _, id := range b.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *AdminBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	reply := tgbotapi.NewMessage(msg.Chat.ID, b.respond(ctx, msg.Command(), msg.CommandArguments()))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.bot.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

// respond renders the HTML answer to one command.
func (b *AdminBot) respond(ctx context.Context, command, args string) string {
	switch command {
	case "start", "help":
		return helpMessage
	case "top":
		return b.handleTop(ctx, args)
	case "player":
		return b.handlePlayer(ctx, args)
	case "history":
		return b.handleHistory(ctx, args)
	case "sweep":
		return b.handleSweep(ctx)
	default:
		return "Unknown command. Use /help for the list of commands."
	}
}

const helpMessage = `<b>Operator commands</b>

/top [limit] - richest players
/player &lt;tg_id&gt; - player snapshot
/history &lt;tg_id&gt; - recent purchases and boosts
/sweep - close overdue turbo windows now`

func (b *AdminBot) handleTop(ctx context.Context, args string) string {
	limit := defaultTop
	if args != "" {
		if n, err := strconv.Atoi(args); err == nil && n > 0 && n <= maxTop {
			limit = n
		}
	}

	top, err := b.deps.Ranking.Top(ctx, limit)
	if err != nil {
		return errorMessage(err)
	}
	if len(top) == 0 {
		return "No players yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<b>Top %d by balance</b>\n\n", limit)
	for i, p := range top {
		name := strings.TrimSpace(p.FirstName + " " + p.LastName)
		fmt.Fprintf(&sb, "%d. %s - %d\n", i+1, html.EscapeString(name), p.Balance)
	}
	return sb.String()
}

func (b *AdminBot) lookup(ctx context.Context, command, args string) (*domain.Player, string) {
	tgID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		return nil, "Usage: /" + command + " &lt;tg_id&gt;"
	}
	p, err := b.deps.Players.PlayerByTelegramID(ctx, tgID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Sprintf("No player with telegram id %d.", tgID)
	}
	if err != nil {
		return nil, errorMessage(err)
	}
	return p, ""
}

func (b *AdminBot) handlePlayer(ctx context.Context, args string) string {
	p, msg := b.lookup(ctx, "player", args)
	if p == nil {
		return msg
	}

	turbo := "off"
	if p.IsTurboBoostActive && p.TurboBoostExpiresAt != nil {
		turbo = "until " + p.TurboBoostExpiresAt.UTC().Format(time.RFC3339)
	}

	return fmt.Sprintf(`<b>%s</b> (@%s)
<code>%s</code>

Balance: %d (+%d per tap)
Energy: %d / %d (-%d per tap)
Multitap: level %d, next %d
Energy limit: level %d, next %d
Boosts: energy %d/%d, turbo %d/%d
Turbo: %s`,
		html.EscapeString(strings.TrimSpace(p.FirstName+" "+p.LastName)), html.EscapeString(p.Username),
		p.ID,
		p.Balance, p.BalanceAmount,
		p.Energy, p.MaxEnergy, p.EnergyAmount,
		p.MultitapLevel, p.MultitapPrice,
		p.EnergyLimitLevel, p.EnergyLimitPrice,
		p.QuantityEnergyBoost, p.MaxQuantityEnergyBoost, p.QuantityTurboBoost, p.MaxQuantityTurboBoost,
		turbo,
	)
}

func (b *AdminBot) handleHistory(ctx context.Context, args string) string {
	if b.deps.History == nil {
		return "Audit trail is disabled."
	}
	p, msg := b.lookup(ctx, "history", args)
	if p == nil {
		return msg
	}

	entries, err := b.deps.History.History(ctx, p.ID, historyLimit)
	if err != nil {
		return errorMessage(err)
	}
	if len(entries) == 0 {
		return "No recorded actions."
	}

	var sb strings.Builder
	sb.WriteString("<b>Recent actions</b>\n\n")
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s %s\n", e.CreatedAt.UTC().Format("2006-01-02 15:04"), e.Action)
	}
	return sb.String()
}

func (b *AdminBot) handleSweep(ctx context.Context) string {
	n, err := b.deps.Sweeper.Sweep(ctx)
	if err != nil {
		return errorMessage(err)
	}
	return fmt.Sprintf("Closed %d overdue turbo windows. %d timers pending.", n, b.deps.Sweeper.Pending())
}

func errorMessage(err error) string {
	return "Error: " + html.EscapeString(err.Error())
}
