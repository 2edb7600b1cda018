// Command crawler runs the bounded, multithreaded web crawler: it reads an
// INI config, opens the Postgres index, and crawls from the configured seed
// URL to the configured depth before exiting.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iparadigms/searchengine/config"
	"github.com/iparadigms/searchengine/crawl"
	"github.com/iparadigms/searchengine/fetch"
	"github.com/iparadigms/searchengine/store"
)

var configPath string

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

var crawlerCommand = &cobra.Command{
	Use:   "crawler",
	Short: "crawl a site and index its pages",
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
		log := logrus.WithField("component", "crawler")

		idx, err := store.Open(config.DatabaseDSN())
		if err != nil {
			fatalf("failed to open index store: %v", err)
		}
		defer idx.Close()

		fetcher, err := fetch.New(fetch.Options{
			Timeout:            config.RequestTimeoutDuration(),
			UserAgent:          cfg.Spider.UserAgent,
			MaxDNSCacheEntries: 1024,
		})
		if err != nil {
			fatalf("failed to build fetcher: %v", err)
		}

		engine := crawl.New(crawl.Options{
			StartURL: cfg.Spider.StartURL,
			MaxDepth: cfg.Spider.MaxDepth,
			Workers:  cfg.Spider.ThreadCount,
			Delay:    config.DelayBetweenRequestsDuration(),
		}, fetcher, idx)

		engine.Run()

		stats := engine.Stats()
		log.Infof("crawl complete: processed=%d errors=%d visited=%d",
			stats.Processed, stats.Errors, stats.Visited)
	},
}

func main() {
	crawlerCommand.Flags().StringVarP(&configPath, "config", "c", "",
		"path to a config file to load")
	if err := crawlerCommand.Execute(); err != nil {
		fatalf("%v", err)
	}
}
