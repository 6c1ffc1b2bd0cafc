package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"

	"github.com/crosstalk-chat/crosstalk/config"
	"github.com/crosstalk-chat/crosstalk/globals"
	"github.com/crosstalk-chat/crosstalk/httpapi"
	"github.com/crosstalk-chat/crosstalk/janitor"
	"github.com/crosstalk-chat/crosstalk/presence"
	"github.com/crosstalk-chat/crosstalk/store"
	"github.com/crosstalk-chat/crosstalk/translate"
	"github.com/crosstalk-chat/crosstalk/ws"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	addr       = pflag.String("addr", "localhost:8000", "service address (including port)")
	sslCert    = pflag.String("ssl-cert", "", "SSL cert for websocket (optional)")
	sslKey     = pflag.String("ssl-key", "", "SSL key for websocket (optional)")
)

func main() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		globals.AppLogger.Error("interrupted!")
		os.Exit(1)
	}()

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	if globalConfig.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
	}

	translator, err := translate.NewGoogleTranslator(context.Background(), globalConfig.TranslationConfig.ProjectId)
	if err != nil {
		panic(err)
	}
	defer translator.Close()
	gateway := translate.NewGateway(
		translator,
		globalConfig.TranslationConfig.Attempts,
		globalConfig.TranslationConfig.BaseDelay(),
		globalConfig.TranslationConfig.CacheSize,
	)

	roomStore := store.NewStore()
	hub := ws.NewHub()
	manager := presence.NewManager(roomStore, hub, globalConfig.GraceConfig.ShortGrace(), globalConfig.GraceConfig.LongGrace())

	sweeper := janitor.New(roomStore, globalConfig.JanitorConfig.SweepSpec, globalConfig.JanitorConfig.IdleThreshold())
	if err := sweeper.Start(); err != nil {
		panic(err)
	}
	defer sweeper.Stop()

	server := httpapi.NewServer(roomStore, hub, manager, gateway)
	http.Handle("/", server.Router())

	globals.AppLogger.Info("listening", "addr", *addr)
	if *sslCert != "" && *sslKey != "" {
		err = http.ListenAndServeTLS(*addr, *sslCert, *sslKey, nil)
	} else {
		err = http.ListenAndServe(*addr, nil)
	}
	globals.AppLogger.Error("stopped listening", "error", err)
}
