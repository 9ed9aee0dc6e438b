package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/rs/zerolog"

	"github.com/worldpet/go-auth-client/credstore"
	"github.com/worldpet/go-auth-client/guard"
	"github.com/worldpet/go-auth-client/internal/config"
	"github.com/worldpet/go-auth-client/internal/metrics"
	"github.com/worldpet/go-auth-client/internal/utils"
	"github.com/worldpet/go-auth-client/session"
	"github.com/worldpet/go-auth-client/tenants"
	"github.com/worldpet/go-auth-client/transport"
	"github.com/worldpet/go-auth-client/validate"
)

const usage = `Usage: sessionctl <command> [flags]

Commands:
  status           resolve the session and print the route guard decision
  whoami           resolve the session and print the current user
  login            log in with -email and -password
  register-owner   register a pet owner account
  register-clinic  register a clinic and its admin account
  logout           clear the stored session
  tenant           resolve the active tenant with -host and -tenant
`

type app struct {
	cfg      config.Config
	manager  *session.Manager
	resolver *tenants.Resolver
	log      zerolog.Logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

func run(command string, args []string) error {
	cfg := config.New()
	displayAppname(cfg.GetAppName())

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if cfg.GetEnv() != "DEV" {
		logger = logger.Level(zerolog.WarnLevel)
	}

	creds, err := credstore.NewFileRepo(cfg.GetDataFolder())
	if err != nil {
		return err
	}

	mx := metrics.New()
	client, err := transport.New(cfg.GetIdentityBaseURL(), creds,
		transport.WithLogger(logger),
		transport.WithMetrics(mx),
	)
	if err != nil {
		return err
	}

	manager, err := session.New(creds, client,
		session.WithLogger(logger),
		session.WithMetrics(mx),
	)
	if err != nil {
		return err
	}

	resolver, err := tenants.NewResolver(client,
		tenants.WithBaseDomain(cfg.GetBaseDomain()),
		tenants.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(),
		time.Duration(cfg.GetHTTPTimeoutSeconds())*time.Second)
	defer cancel()

	a := &app{cfg: cfg, manager: manager, resolver: resolver, log: logger}

	switch command {
	case "status":
		return a.status(ctx)
	case "whoami":
		return a.whoami(ctx)
	case "login":
		return a.login(ctx, args)
	case "register-owner":
		return a.registerOwner(ctx, args)
	case "register-clinic":
		return a.registerClinic(ctx, args)
	case "logout":
		a.manager.Logout()
		fmt.Println("Logged out.")
		return nil
	case "tenant":
		return a.tenant(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func (a *app) status(ctx context.Context) error {
	a.manager.ResolveSession(ctx)
	state := a.manager.State()
	decision := guard.Evaluate(state)
	fmt.Printf("Guard decision: %s\n", decision)
	if state.IsAuthenticated {
		fmt.Printf("Signed in as %s (%s)\n", state.User.Email, state.User.Role)
	}
	return nil
}

func (a *app) whoami(ctx context.Context) error {
	a.manager.ResolveSession(ctx)
	state := a.manager.State()
	if !state.IsAuthenticated {
		fmt.Println("Not signed in.")
		return nil
	}
	user := utils.Value(state.User)
	fmt.Printf("%s\t%s\t%s\ttenant=%s\n", user.ID, user.DisplayName, user.Role, user.TenantID)
	return nil
}

func (a *app) login(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("login", flag.ExitOnError)
	email := flags.String("email", "", "account email")
	password := flags.String("password", "", "account password")
	_ = flags.Parse(args)

	credentials := session.Credentials{Email: *email, Password: *password}
	if fields := validate.Login(credentials); !fields.Valid() {
		return fieldErrors(fields)
	}

	if err := a.manager.Login(ctx, credentials); err != nil {
		return err
	}
	state := a.manager.State()
	fmt.Printf("Signed in as %s (%s)\n", state.User.Email, state.User.Role)
	return nil
}

func (a *app) registerOwner(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("register-owner", flag.ExitOnError)
	name := flags.String("name", "", "full name")
	email := flags.String("email", "", "account email")
	phone := flags.String("phone", "", "phone number")
	password := flags.String("password", "", "account password")
	confirm := flags.String("confirm", "", "password confirmation")
	_ = flags.Parse(args)

	registration := session.OwnerRegistration{
		FullName:        *name,
		Email:           *email,
		Phone:           *phone,
		Password:        *password,
		ConfirmPassword: *confirm,
	}
	if fields := validate.OwnerRegistration(registration); !fields.Valid() {
		return fieldErrors(fields)
	}

	if err := a.manager.Register(ctx, registration); err != nil {
		return err
	}
	fmt.Println("Registered. You can now log in.")
	return nil
}

func (a *app) registerClinic(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("register-clinic", flag.ExitOnError)
	clinic := flags.String("clinic", "", "clinic name")
	subdomain := flags.String("subdomain", "", "clinic subdomain")
	admin := flags.String("admin", "", "admin full name")
	email := flags.String("email", "", "admin email")
	phone := flags.String("phone", "", "phone number")
	password := flags.String("password", "", "account password")
	confirm := flags.String("confirm", "", "password confirmation")
	_ = flags.Parse(args)

	registration := session.ClinicRegistration{
		ClinicName:      *clinic,
		Subdomain:       *subdomain,
		AdminName:       *admin,
		Email:           *email,
		Phone:           *phone,
		Password:        *password,
		ConfirmPassword: *confirm,
	}
	if fields := validate.ClinicRegistration(registration); !fields.Valid() {
		return fieldErrors(fields)
	}

	if err := a.manager.Register(ctx, registration); err != nil {
		return err
	}
	fmt.Println("Clinic registered. You can now log in.")
	return nil
}

func (a *app) tenant(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("tenant", flag.ExitOnError)
	host := flags.String("host", "", "request host, e.g. happy-paws.worldpet.io")
	slug := flags.String("tenant", "", "explicit tenant slug")
	_ = flags.Parse(args)

	rc := tenants.RequestContext{Host: *host}
	if *slug != "" {
		rc.Query = url.Values{tenants.TenantParam: []string{*slug}}
	}

	tenant := a.resolver.Resolve(ctx, rc)
	fmt.Printf("%s\t%s\tcolor=%s\n", tenant.Slug, tenant.Name, tenant.PrimaryColor)
	return nil
}

func fieldErrors(fields validate.Fields) error {
	for field, message := range fields {
		fmt.Fprintf(os.Stderr, "  %s: %s\n", field, message)
	}
	return fmt.Errorf("validation failed")
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
