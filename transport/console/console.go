package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	bookingModel "quickassist/internal/domains/booking/model"
	bookingDto "quickassist/internal/domains/booking/model/dto"
	bookingService "quickassist/internal/domains/booking/service"
	sessionDto "quickassist/internal/domains/session/model/dto"
	sessionService "quickassist/internal/domains/session/service"
	"quickassist/shared/failure"
)

// Console is the interactive command surface. It owns at most one
// open tracking view at a time; opening a booking closes the
// previous view first.
type Console struct {
	session sessionService.Session
	booking bookingService.Booking

	in  io.Reader
	out io.Writer

	tracker   bookingService.Tracker
	renderEnd chan struct{}
}

func New(session sessionService.Session, booking bookingService.Booking) *Console {
	return &Console{
		session: session,
		booking: booking,
		in:      os.Stdin,
		out:     os.Stdout,
	}
}

// Run restores the session from stored tokens and serves commands
// until EOF, "quit" or context cancellation.
func (c *Console) Run(ctx context.Context) error {
	c.session.Init(ctx)
	c.printf("session: %s", c.session.State())

	scanner := bufio.NewScanner(c.in)
	c.prompt()

	for scanner.Scan() {
		if ctx.Err() != nil {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			c.prompt()
			continue
		}

		fields := strings.Fields(line)
		command, args := fields[0], fields[1:]

		if command == "quit" || command == "exit" {
			break
		}

		if err := c.dispatch(ctx, command, args); err != nil {
			c.printf("error: %s", err)
		}

		c.prompt()
	}

	c.closeTracker()

	return scanner.Err()
}

func (c *Console) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "help":
		c.help()
		return nil
	case "login":
		return c.login(ctx, args)
	case "logout":
		c.closeTracker()
		c.session.Logout()
		c.printf("logged out")
		return nil
	case "me":
		return c.me()
	case "history":
		return c.history(ctx)
	case "create":
		return c.create(ctx, args)
	case "open":
		return c.open(ctx, args)
	case "close":
		c.closeTracker()
		return nil
	case "status":
		return c.status()
	case "actions":
		return c.actions()
	case "accept", "decline", "start", "complete":
		return c.action(ctx, command)
	case "pay":
		return c.pay(ctx, args)
	case "rate":
		return c.rate(ctx, args)
	case "chat":
		return c.chat(ctx, args)
	default:
		return failure.Validation(fmt.Sprintf("unknown command %q, try help", command))
	}
}

func (c *Console) login(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return failure.Validation("usage: login <username> <password>")
	}

	if err := c.session.Login(ctx, sessionDto.LoginRequest{
		Username: args[0],
		Password: args[1],
	}); err != nil {
		return err
	}

	return c.me()
}

func (c *Console) me() error {
	identity, ok := c.session.Identity()
	if !ok {
		return failure.Unauthorized("not signed in")
	}

	c.printf("%s <%s> (%s)", identity.Username, identity.Email, identity.UserType)

	return nil
}

func (c *Console) history(ctx context.Context) error {
	bookings, err := c.booking.History(ctx)
	if err != nil {
		return err
	}

	if len(bookings) == 0 {
		c.printf("no bookings yet")
		return nil
	}

	for _, b := range bookings {
		c.printf("%s  %-12s %s", b.ID, b.Status, serviceName(b))
	}

	return nil
}

func (c *Console) create(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return failure.Validation("usage: create <service_id> <latitude> <longitude>")
	}

	serviceID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return failure.Validation("service_id must be a number")
	}

	latitude, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return failure.Validation("latitude must be a number")
	}

	longitude, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return failure.Validation("longitude must be a number")
	}

	created, err := c.booking.Create(ctx, bookingDto.CreateBookingRequest{
		ServiceID: serviceID,
		Latitude:  latitude,
		Longitude: longitude,
	})
	if err != nil {
		return err
	}

	c.printf("created booking %s (%s)", created.ID, created.Status)

	return nil
}

func (c *Console) open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return failure.Validation("usage: open <booking_id>")
	}

	c.closeTracker()

	tracker, err := c.booking.Open(ctx, args[0])
	if err != nil {
		return err
	}

	c.tracker = tracker
	c.renderEnd = make(chan struct{})

	go c.render(tracker, c.renderEnd)

	return c.status()
}

func (c *Console) closeTracker() {
	if c.tracker == nil {
		return
	}

	c.tracker.Close()
	<-c.renderEnd

	c.tracker = nil
	c.renderEnd = nil

	c.printf("view closed")
}

// render turns view events into terminal lines until the tracker
// closes its event stream.
func (c *Console) render(tracker bookingService.Tracker, done chan<- struct{}) {
	defer close(done)

	for event := range tracker.Events() {
		switch event {
		case bookingService.EventSnapshot:
			snapshot := tracker.Snapshot()
			c.printf("[booking] %s is now %s", snapshot.ID, snapshot.Status)
		case bookingService.EventPosition:
			if position, ok := tracker.Position(); ok {
				c.printf("[position] %.5f, %.5f", position.Latitude, position.Longitude)
			}
		case bookingService.EventChat:
			messages := tracker.Messages()
			if len(messages) > 0 {
				last := messages[len(messages)-1]
				c.printf("[chat] %s: %s", last.Sender, last.Body)
			}
		case bookingService.EventChannelDown:
			c.printf("[realtime] live updates unavailable, reopen the booking to retry")
		case bookingService.EventGeolocation:
			c.printf("[location] device position unavailable, reporting disabled")
		}
	}
}

func (c *Console) status() error {
	tracker, err := c.current()
	if err != nil {
		return err
	}

	snapshot := tracker.Snapshot()
	c.printf("booking %s  %s  %s", snapshot.ID, snapshot.Status, serviceName(snapshot))

	if snapshot.Amount != nil {
		c.printf("amount: %.2f (paid: %t)", *snapshot.Amount, snapshot.IsPaid)
	}

	if tracker.AwaitingCashConfirmation() {
		c.printf("awaiting cash confirmation from the provider")
	}

	if position, ok := tracker.Position(); ok {
		c.printf("provider at %.5f, %.5f", position.Latitude, position.Longitude)
	}

	return c.actions()
}

func (c *Console) actions() error {
	tracker, err := c.current()
	if err != nil {
		return err
	}

	actions := tracker.AvailableActions()
	if len(actions) == 0 {
		c.printf("no actions available")
		return nil
	}

	names := make([]string, 0, len(actions))
	for _, action := range actions {
		names = append(names, string(action))
	}

	c.printf("actions: %s", strings.Join(names, ", "))

	return nil
}

func (c *Console) action(ctx context.Context, command string) error {
	tracker, err := c.current()
	if err != nil {
		return err
	}

	actions := map[string]bookingModel.Action{
		"accept":   bookingModel.ActionAccept,
		"decline":  bookingModel.ActionDecline,
		"start":    bookingModel.ActionStartJob,
		"complete": bookingModel.ActionCompleteJob,
	}

	return tracker.Do(ctx, actions[command])
}

func (c *Console) pay(ctx context.Context, args []string) error {
	tracker, err := c.current()
	if err != nil {
		return err
	}

	if len(args) != 1 {
		return failure.Validation("usage: pay <CASH|M-PESA>")
	}

	return tracker.Pay(ctx, bookingDto.PayRequest{
		PaymentMethod: strings.ToUpper(args[0]),
	})
}

func (c *Console) rate(ctx context.Context, args []string) error {
	tracker, err := c.current()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return failure.Validation("usage: rate <1-5> [comment]")
	}

	score, err := strconv.Atoi(args[0])
	if err != nil {
		return failure.Validation("rating must be a number between 1 and 5")
	}

	return tracker.Rate(ctx, bookingDto.RateRequest{
		Rating:  score,
		Comment: strings.Join(args[1:], " "),
	})
}

func (c *Console) chat(ctx context.Context, args []string) error {
	tracker, err := c.current()
	if err != nil {
		return err
	}

	return tracker.SendChat(ctx, strings.Join(args, " "))
}

func (c *Console) current() (bookingService.Tracker, error) {
	if c.tracker == nil {
		return nil, failure.Validation("no booking open, use open <booking_id>")
	}

	return c.tracker, nil
}

func (c *Console) help() {
	c.printf(`commands:
  login <username> <password>      sign in
  logout                           sign out and clear tokens
  me                               show the signed-in identity
  history                          list past bookings
  create <service> <lat> <lng>     request a new booking
  open <booking_id>                open the live tracking view
  status | actions                 inspect the open booking
  accept | decline | start | complete
  pay <CASH|M-PESA>                pay a completed booking
  rate <1-5> [comment]             rate a paid booking
  chat <message>                   send a chat message
  close | quit`)
}

func (c *Console) prompt() {
	fmt.Fprint(c.out, "> ")
}

func (c *Console) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(c.out, format+"\n", args...); err != nil {
		log.Warn().Err(err).Msg("failed to write console output")
	}
}

func serviceName(b bookingModel.Booking) string {
	if b.Service == nil {
		return "unknown service"
	}

	return b.Service.Name
}
