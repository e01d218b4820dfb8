// Command actilink is a terminal client for the ActiLink API.
//
//	actilink register -email a@b.c -password secret1 -name Ana
//	actilink login -email a@b.c -password secret1
//	actilink list -q yoga
//	actilink add -title "Yoga Class" -date 2025-06-01 -start 09:00 -end 10:00 -lat 48.85 -lon 2.29
//	actilink join <activity-id>
//	actilink markers -lat 48.85 -lon 2.29 -radius 5
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/actilink/actilink-api/internal/adapters/httpapi"
	"github.com/actilink/actilink-api/internal/app/activitylist"
	"github.com/actilink/actilink-api/internal/app/mapview"
	"github.com/actilink/actilink-api/internal/client"
	"github.com/actilink/actilink-api/internal/domain"
	"github.com/actilink/actilink-api/internal/platform/logger"
)

type app struct {
	out         io.Writer
	log         zerolog.Logger
	c           *client.Client
	list        *activitylist.List
	sessionPath string
	subject     domain.UserID
}

func main() {
	_ = godotenv.Load()

	global := flag.NewFlagSet("actilink", flag.ExitOnError)
	apiURL := global.String("api", envOr("ACTILINK_API_URL", "http://localhost:8080"), "API base URL")
	subject := global.String("as", os.Getenv("ACTILINK_DEBUG_SUBJECT"), "act as this user against a dev-mode server")
	verbose := global.Bool("v", false, "debug logging")
	global.Usage = usage(global)
	_ = global.Parse(os.Args[1:])
	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	log := logger.Init(level, "console")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := client.DefaultConfig(*apiURL)
	cfg.DebugSubject = *subject
	a := &app{
		out:         os.Stdout,
		log:         log,
		c:           client.New(cfg, nil, log),
		sessionPath: sessionPath(),
		subject:     domain.UserID(strings.TrimSpace(*subject)),
	}
	a.list = activitylist.New(a.c, log)
	a.list.Subscribe(func(s activitylist.Snapshot) {
		log.Debug().Str("state", s.Status.String()).Int("activities", len(s.Activities)).Int("filtered", len(s.Filtered)).Msg("list changed")
	})

	if s, err := loadSession(a.sessionPath); err == nil {
		a.c.RestoreSession(s)
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("read saved session")
	}
	a.c.SubscribeSession(func(s client.Session) {
		if err := saveSession(a.sessionPath, s); err != nil {
			log.Warn().Err(err).Msg("save session")
		}
	})

	cmd, args := global.Arg(0), global.Args()[1:]
	if err := a.run(ctx, cmd, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func (a *app) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "register":
		return a.register(ctx, args)
	case "login":
		return a.login(ctx, args)
	case "logout":
		return a.c.Logout(ctx)
	case "me":
		return a.me(ctx)
	case "profile":
		return a.profile(ctx, args)
	case "list":
		return a.listActivities(ctx, args)
	case "mine":
		return a.mine(ctx)
	case "add":
		return a.add(ctx, args)
	case "delete":
		return a.withID(args, func(id domain.ActivityID) error { return a.delete(ctx, id) })
	case "join":
		return a.withID(args, func(id domain.ActivityID) error { return a.list.Join(ctx, id, a.userID()) })
	case "leave":
		return a.withID(args, func(id domain.ActivityID) error { return a.list.Leave(ctx, id, a.userID()) })
	case "markers":
		return a.markers(ctx, args)
	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// userID is the signed-in user, or the debug subject against a dev server.
func (a *app) userID() domain.UserID {
	if id := a.c.CurrentUserID(); id != "" {
		return id
	}
	return a.subject
}

func (a *app) register(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("register", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password (min 6 characters)")
	name := fs.String("name", "", "display name")
	age := fs.Int("age", 0, "age")
	bio := fs.String("bio", "", "short bio")
	_ = fs.Parse(args)

	res, err := a.c.Register(ctx, httpapi.RegisterRequest{Email: *email, Password: *password, Name: *name, Age: *age, Bio: *bio})
	if err != nil {
		return err
	}
	return a.report(res)
}

func (a *app) login(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("login", flag.ExitOnError)
	email := fs.String("email", "", "email address")
	password := fs.String("password", "", "password")
	_ = fs.Parse(args)

	res, err := a.c.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	return a.report(res)
}

func (a *app) report(res client.AuthResult) error {
	if !res.Success {
		return errors.New(res.Message)
	}
	fmt.Fprintf(a.out, "%s (user %s)\n", res.Message, res.UserID)
	return nil
}

func (a *app) me(ctx context.Context) error {
	uid, p, err := a.c.Me(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "user: %s\n", uid)
	if p == nil {
		fmt.Fprintln(a.out, "no profile")
		return nil
	}
	printProfile(a.out, *p)
	return nil
}

func (a *app) profile(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: profile <user-id>")
	}
	p, err := a.c.GetProfile(ctx, domain.UserID(args[0]))
	if err != nil {
		return err
	}
	printProfile(a.out, p)
	return nil
}

func (a *app) listActivities(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	q := fs.String("q", "", "filter on title, location or category")
	_ = fs.Parse(args)

	if err := a.list.Load(ctx); err != nil {
		return err
	}
	a.list.SetFilter(*q)
	a.printActivities(a.list.Filtered())
	return nil
}

func (a *app) mine(ctx context.Context) error {
	as, err := a.c.ListJoinedActivities(ctx)
	if err != nil {
		return err
	}
	a.printActivities(as)
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	f := activitylist.NewFields{}
	fs.StringVar(&f.Title, "title", "", "title")
	fs.StringVar(&f.Category, "category", "", "category")
	fs.StringVar(&f.Date, "date", "", "date, YYYY-MM-DD")
	fs.StringVar(&f.StartTime, "start", "", "start time, HH:MM")
	fs.StringVar(&f.EndTime, "end", "", "end time, HH:MM")
	fs.StringVar(&f.Location, "location", "", "location")
	fs.Float64Var(&f.Latitude, "lat", mapview.DefaultViewer.Latitude, "latitude")
	fs.Float64Var(&f.Longitude, "lon", mapview.DefaultViewer.Longitude, "longitude")
	_ = fs.Parse(args)
	f.UserID = a.userID()

	created, err := a.list.Add(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "created %s\n", created.ID)
	return nil
}

func (a *app) delete(ctx context.Context, id domain.ActivityID) error {
	if err := a.list.Load(ctx); err != nil {
		return err
	}
	for _, act := range a.list.Activities() {
		if act.ID == id && !activitylist.CanModify(act, a.userID()) {
			return fmt.Errorf("only the creator of %s can delete it", id)
		}
	}
	return a.list.Delete(ctx, id)
}

func (a *app) markers(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("markers", flag.ExitOnError)
	lat := fs.Float64("lat", 0, "viewer latitude")
	lon := fs.Float64("lon", 0, "viewer longitude")
	radius := fs.Float64("radius", mapview.DefaultThresholdKm, "radius in km")
	q := fs.String("q", "", "title search")
	local := fs.Bool("local", false, "project the loaded list locally instead of asking the server")
	_ = fs.Parse(args)

	viewer, err := viewerFromFlags(fs, *lat, *lon)
	if err != nil {
		return err
	}

	var ms []domain.Marker
	if *local {
		if err := a.list.Load(ctx); err != nil {
			return err
		}
		ms = mapview.Project(a.list.Activities(), mapview.ResolveViewer(viewer), *radius, *q)
	} else {
		ms, err = a.c.Markers(ctx, client.MarkersQuery{Viewer: viewer, RadiusKm: radius, Search: *q})
		if err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPOSITION\tSNIPPET")
	for _, m := range ms {
		fmt.Fprintf(tw, "%s\t%s\t%.5f,%.5f\t%s\n", m.ActivityID, m.Title, m.Position.Latitude, m.Position.Longitude, m.Snippet)
	}
	return tw.Flush()
}

// viewerFromFlags returns nil when neither -lat nor -lon was given, so the
// default viewer applies. Giving only one of them is an error.
func viewerFromFlags(fs *flag.FlagSet, lat, lon float64) (*domain.GeoPoint, error) {
	var hasLat, hasLon bool
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			hasLat = true
		case "lon":
			hasLon = true
		}
	})
	if hasLat != hasLon {
		return nil, errors.New("-lat and -lon must be given together")
	}
	if !hasLat {
		return nil, nil
	}
	return &domain.GeoPoint{Latitude: lat, Longitude: lon}, nil
}

func (a *app) withID(args []string, fn func(domain.ActivityID) error) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New("expected exactly one activity id")
	}
	return fn(domain.ActivityID(strings.TrimSpace(args[0])))
}

func (a *app) printActivities(as []domain.Activity) {
	me := a.userID()
	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tCATEGORY\tWHEN\tLOCATION\tPEOPLE\t")
	for _, act := range as {
		mark := ""
		if act.HasParticipant(me) {
			mark = "joined"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s %s-%s\t%s\t%d\t%s\n",
			act.ID, act.Title, act.Category, act.Date, act.StartTime, act.EndTime, act.Location, len(act.Participants), mark)
	}
	_ = tw.Flush()
}

func printProfile(w io.Writer, p domain.UserProfile) {
	fmt.Fprintf(w, "name: %s\nage:  %d\nbio:  %s\n", p.Name, p.Age, p.Bio)
}

func usage(fs *flag.FlagSet) func() {
	return func() {
		fmt.Fprintf(fs.Output(), "usage: actilink [flags] <command> [args]\n\n")
		fmt.Fprintf(fs.Output(), "commands: register login logout me profile list mine add delete join leave markers\n\nflags:\n")
		fs.PrintDefaults()
	}
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func sessionPath() string {
	if p := os.Getenv("ACTILINK_SESSION_FILE"); p != "" {
		return p
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".actilink-session.json"
	}
	return filepath.Join(dir, "actilink", "session.json")
}
