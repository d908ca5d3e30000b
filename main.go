package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/djwackey/gitea/log"
	"github.com/kardianos/service"

	"github.com/djwackey/dorps/config"
	"github.com/djwackey/dorps/constant"
	"github.com/djwackey/dorps/rtspproxy"
	"github.com/djwackey/dorps/utils"
)

var (
	h, v, d, u bool
	c          string
)

type program struct{}

// configPath resolves the config file to load. The default name is looked
// up in the working directory first, then beside the executable; a daemon
// started by the service manager does not run from the install directory.
func configPath() string {
	if c != constant.DORPS_CONFIG_FILE {
		return c
	}
	if _, err := os.Stat(c); err == nil {
		return c
	}
	if dir, err := utils.GetRunPath(); err == nil {
		return filepath.Join(dir, constant.DORPS_CONFIG_FILE)
	}
	return c
}

func (p *program) run() {
	conf, err := config.Load(configPath())
	if err != nil {
		fmt.Println(constant.FAILED_READ_CONFIG, err)
		return
	}

	// open a logger writer of console or file mode.
	logConfig := fmt.Sprintf(`{"level":%d,"filename":"%s"}`, conf.Log.Level, conf.Log.FileName)
	log.NewLogger(0, conf.Log.Mode, logConfig)
	log.Info(constant.SUCCESS_READ_CONFIG)

	// create the rtsp proxy server
	server := rtspproxy.New(conf)

	if err = server.Listen(conf.Port); err != nil {
		fmt.Printf("Failed to bind port: %d\n", conf.Port)
		return
	}

	fmt.Println("This proxy's URL: " + server.RtspURLPrefix() + ".")
	log.Info(constant.START_PROXY_SERVER)
	server.Start()

	// do event loop
	select {}
}

func (p *program) Start(s service.Service) error {
	go p.run()
	return nil
}

func (p *program) Stop(s service.Service) error {
	log.Info(constant.CLOSE_PROXY_SERVER)
	return nil
}

func main() {
	flag.BoolVar(&h, "h", false, "print help")
	flag.BoolVar(&v, "v", false, "print version")
	flag.BoolVar(&d, "d", false, "install and start as a daemon")
	flag.BoolVar(&u, "u", false, "stop and uninstall the daemon")
	flag.StringVar(&c, "c", constant.DORPS_CONFIG_FILE, "config file")
	flag.Parse()

	if h {
		fmt.Println(constant.HELP_MESSAGE)
		flag.PrintDefaults()
		return
	}
	if v {
		fmt.Println(constant.PROXY_SERVER_VERSION)
		return
	}

	sc := new(service.Config)
	sc.Name = "dorps"
	sc.DisplayName = constant.PROXY_SERVER_NAME
	sc.Description = constant.PROXY_SERVER_NAME

	prg := new(program)
	s, err := service.New(prg, sc)
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	if u {
		controlService(s, "stop")
		controlService(s, "uninstall")
		return
	}

	if !d {
		prg.run()
		return
	}

	fmt.Println(constant.START_AS_DAEMON)
	controlService(s, "stop")
	controlService(s, "uninstall")
	controlService(s, "install")
	controlService(s, "start")
}

func controlService(s service.Service, action string) {
	if err := service.Control(s, action); err != nil {
		fmt.Printf("service %s: %v\n", action, err)
	} else {
		fmt.Printf("service %s done\n", action)
	}
}
