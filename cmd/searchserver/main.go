// Command searchserver starts the HTTP search front-end against an
// already-populated index.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iparadigms/searchengine/config"
	"github.com/iparadigms/searchengine/search"
	"github.com/iparadigms/searchengine/store"
)

var configPath string

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

var serverCommand = &cobra.Command{
	Use:   "searchserver",
	Short: "serve the search front-end",
	Run: func(cmd *cobra.Command, args []string) {
		config.SetDefaultConfig()
		if configPath != "" {
			if err := config.ReadConfigFile(configPath); err != nil {
				fatalf("failed to read config %v: %v", configPath, err)
			}
		} else if err := config.Validate(); err != nil {
			fatalf("%v", err)
		}
		cfg := config.Config

		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

		idx, err := store.Open(config.DatabaseDSN())
		if err != nil {
			fatalf("failed to open index store: %v", err)
		}
		defer idx.Close()

		srv := search.New(search.Options{
			Addr:       fmt.Sprintf("%v:%v", cfg.SearchServer.Host, cfg.SearchServer.Port),
			MaxResults: cfg.SearchServer.MaxResults,
			Threads:    cfg.SearchServer.Threads,
		}, idx)

		go func() {
			if err := srv.ListenAndServe(); err != nil {
				fatalf("search server failed: %v", err)
			}
		}()

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig

		if err := srv.Shutdown(); err != nil {
			fatalf("search server shutdown failed: %v", err)
		}
	},
}

func main() {
	serverCommand.Flags().StringVarP(&configPath, "config", "c", "",
		"path to a config file to load")
	if err := serverCommand.Execute(); err != nil {
		fatalf("%v", err)
	}
}
