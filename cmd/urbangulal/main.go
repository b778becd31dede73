package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urbangulal/urbangulal/config"
	"github.com/urbangulal/urbangulal/internal/api"
	"github.com/urbangulal/urbangulal/internal/app"
	"github.com/urbangulal/urbangulal/internal/catalog"
	"github.com/urbangulal/urbangulal/internal/notify"
	"github.com/urbangulal/urbangulal/internal/orders"
	"github.com/urbangulal/urbangulal/internal/ratings"
	"github.com/urbangulal/urbangulal/internal/report"
	"github.com/urbangulal/urbangulal/internal/users"
	"github.com/urbangulal/urbangulal/internal/webserver"
	"github.com/urbangulal/urbangulal/internal/whatsapp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	h        = flag.Bool("h", false, "help usage")
	conffile = flag.String("c", "urbangulal.yml", "config yaml file")
	envfile  = flag.String("env", ".env", "dotenv file, ignored when missing")
	initdb   = flag.Bool("initdb", false, "drop and recreate all tables, then exit")
	pair     = flag.Bool("pair", false, "link a WhatsApp device from the terminal, then exit")
)

func main() {
	flag.Parse()
	if *h {
		flag.Usage()
		return
	}

	if err := godotenv.Load(*envfile); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "load %s: %v\n", *envfile, err)
	}
	cfg, err := config.LoadConfig(*conffile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database initialized")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *pair {
		if err := pairDevice(ctx, application); err != nil {
			zap.L().Fatal("whatsapp pairing failed", zap.Error(err))
		}
		return
	}

	if err := run(ctx, application); err != nil {
		zap.L().Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, application *app.Application) error {
	cfg := application.Config()
	db := application.DB()

	var wa *whatsapp.Service
	if cfg.WhatsApp.Enabled {
		svc, err := whatsapp.New(ctx, application)
		if err != nil {
			zap.L().Error("whatsapp disabled, session store unavailable", zap.Error(err))
		} else {
			wa = svc
		}
	}
	var sender notify.Sender
	if wa != nil {
		sender = wa
	}

	hooks := orders.NewHooks()
	orderRepo := orders.NewGormRepository(db)
	orderSvc := orders.NewService(orderRepo, hooks)

	var reportOpts []report.Option
	reportOpts = append(reportOpts, report.WithShopName(cfg.Shop.Name))
	if cfg.Report.SFTP.Enabled {
		reportOpts = append(reportOpts, report.WithUploader(report.NewSFTPUploader(cfg.Report.SFTP)))
	}
	reports, err := report.NewGenerator(orderRepo, cfg.GetReportDir(), reportOpts...)
	if err != nil {
		return err
	}
	defer reports.Close()
	if err := reports.Subscribe(hooks); err != nil {
		return err
	}
	if err := reports.Schedule(application.Scheduler(), cfg.Report.DailyAt); err != nil {
		return err
	}

	composer := notify.NewComposer(cfg.Shop.Name, cfg.Shop.CountryCode)
	notifier := notify.NewDispatcher(db, sender, composer, notify.NewMailer(cfg.Mail, cfg.Shop.Name))
	if err := notifier.Subscribe(hooks); err != nil {
		return err
	}

	srv := webserver.NewServer(cfg)
	api.Register(srv, api.Deps{
		Config:      cfg,
		Catalog:     catalog.NewResolver(catalog.MustLoad(), catalog.NewGormOverrideRepository(db)),
		Orders:      orderSvc,
		Users:       users.NewService(db),
		Ratings:     ratings.NewService(db),
		Screenshots: ratings.NewScreenshots(db),
		Reports:     reports,
		Notifier:    notifier,
		WhatsApp:    wa,
		Scheduler:   application.Scheduler(),
	})

	application.StartBackgroundJobs(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		return srv.Shutdown(context.Background())
	})
	if wa != nil {
		g.Go(func() error { return wa.Start(gctx) })
	}
	err = g.Wait()
	hooks.Wait()
	return err
}

// pairDevice prints pairing QR codes until the device is linked.
func pairDevice(ctx context.Context, application *app.Application) error {
	cfg := application.Config()
	cfg.WhatsApp.PrintQR = true
	wa, err := whatsapp.New(ctx, application)
	if err != nil {
		return err
	}
	defer wa.Close()
	if wa.Paired(ctx) {
		fmt.Println("A WhatsApp device is already linked.")
		return nil
	}
	if err := wa.Connect(ctx); err != nil {
		return err
	}
	fmt.Println("Scan the QR code with WhatsApp > Linked devices.")
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			switch st := wa.Status(); st.State {
			case whatsapp.StateConnected:
				fmt.Println("Linked as", st.JID)
				return nil
			case whatsapp.StateDisconnected:
				return fmt.Errorf("pairing stopped: %s", st.LastError)
			}
		}
	}
}
