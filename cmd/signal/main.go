// Package main contains the entrypoint for running a signal server instance.
package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	_ "net/http/pprof"

	"github.com/spf13/viper"

	"github.com/cloudmeet/signal/pkg/log"
	"github.com/cloudmeet/signal/pkg/relay"
	"github.com/cloudmeet/signal/pkg/signal"
)

type global struct {
	Pprof string `mapstructure:"pprof"`
}

// Config for the signal server
type Config struct {
	Global global        `mapstructure:"global"`
	Log    log.Config    `mapstructure:"log"`
	Signal signal.Config `mapstructure:"signal"`
}

var (
	conf = Config{}
	file string
)

func showHelp() {
	fmt.Printf("Usage:%s {params}\n", os.Args[0])
	fmt.Println("      -c {config file}")
	fmt.Println("      -h (show help info)")
}

func load() bool {
	_, err := os.Stat(file)
	if err != nil {
		return false
	}

	viper.SetConfigFile(file)
	viper.SetConfigType("toml")

	err = viper.ReadInConfig()
	if err != nil {
		fmt.Printf("config file %s read failed. %v\n", file, err)
		return false
	}

	if err = viper.Unmarshal(&conf); err != nil {
		fmt.Printf("config file %s loaded failed. %v\n", file, err)
		return false
	}

	fmt.Printf("config %s load ok!\n", file)
	return true
}

func parse() bool {
	flag.StringVar(&file, "c", "configs/signal.toml", "config file")
	help := flag.Bool("h", false, "help info")
	flag.Parse()
	if !load() {
		return false
	}

	if *help {
		showHelp()
		return false
	}
	return true
}

func main() {
	if !parse() {
		showHelp()
		os.Exit(-1)
	}

	log.Init(conf.Log.Level)
	log.Infof("--- Starting Signal Server ---")

	if conf.Global.Pprof != "" {
		go func() {
			log.Infof("start pprof on %s", conf.Global.Pprof)
			err := http.ListenAndServe(conf.Global.Pprof, nil)
			if err != nil {
				log.Errorf("http.ListenAndServe err=%v", err)
			}
		}()
	}

	rs := relay.NewServer()
	defer rs.Close()

	srv := signal.NewServer(conf.Signal, rs)
	if err := srv.Serve(); err != nil {
		log.Panicf("failed to serve: %v", err)
	}
}
