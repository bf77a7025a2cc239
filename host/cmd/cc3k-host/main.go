// Command cc3k-host drives a CC3000 module through a serial SPI bridge.
//
// It loads a YAML configuration, brings the co-processor up, joins the
// configured network and then offers a small interactive shell for poking
// at the socket API.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"cc3k/hci"
	"cc3k/host/bridge"
	"cc3k/host/config"
)

var (
	configPath   = flag.String("config", "cc3k.yaml", "Configuration file path")
	device       = flag.String("device", "", "Serial device path (overrides config)")
	pollInterval = flag.Duration("poll", 500*time.Microsecond, "Interrupt line poll interval")
	dhcpTimeout  = flag.Duration("dhcp-timeout", 30*time.Second, "Time to wait for a DHCP lease")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		glog.Exitf("load config: %v", err)
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}

	glog.Infof("opening bridge on %s", cfg.Serial.Device)
	link, err := bridge.Open(&bridge.Config{
		Device:      cfg.Serial.Device,
		Baud:        cfg.Serial.Baud,
		ReadTimeout: cfg.Serial.ReadTimeout,
	})
	if err != nil {
		glog.Exitf("open bridge: %v", err)
	}
	defer link.Close()

	dev, err := hci.New(hci.Config{
		Link:    link,
		OnEvent: logEvent,
	})
	if err != nil {
		glog.Exitf("create device: %v", err)
	}

	stop := make(chan struct{})
	defer close(stop)
	go dev.PollIRQ(stop, *pollInterval)

	if err := bringUp(dev, cfg); err != nil {
		glog.Exitf("bring-up: %v", err)
	}

	shell(dev)
}

func logEvent(event uint16, arg uint32) {
	switch event {
	case hci.EvntWlanUnsolConnect:
		glog.Info("associated with access point")
	case hci.EvntWlanUnsolDisconnect:
		glog.Warning("disconnected from access point")
	case hci.EvntWlanUnsolDHCP:
		glog.Info("DHCP lease acquired")
	case hci.EvntWlanUnsolTCPCloseWait:
		glog.Infof("peer closed socket %d", arg)
	case hci.EvntDeviceLocked:
		glog.Error("co-processor stopped responding")
	case hci.EvntUnexpectedData:
		glog.Warning("discarded unexpected data frame")
	default:
		glog.V(2).Infof("event 0x%04x arg=%d", event, arg)
	}
}

func bringUp(dev *hci.Device, cfg *config.Config) error {
	glog.Info("initializing co-processor")
	if err := dev.Init(); err != nil {
		return err
	}
	_, total := dev.BufferCredits()
	glog.Infof("buffer pool: %d x %d bytes", total, dev.BufferSize())

	if _, err := dev.SetConnectionPolicy(cfg.Policy.OpenAP, cfg.Policy.FastConnect, cfg.Policy.UseProfiles); err != nil {
		return err
	}

	sec, err := cfg.SecurityType()
	if err != nil {
		return err
	}
	glog.Infof("connecting to %q", cfg.Wifi.SSID)
	if _, err := dev.WlanConnect(sec, cfg.Wifi.SSID, nil, []byte(cfg.Wifi.Key)); err != nil {
		return err
	}

	deadline := time.Now().Add(*dhcpTimeout)
	for !dev.DHCPComplete() {
		if time.Now().After(deadline) {
			return fmt.Errorf("no DHCP lease after %s", *dhcpTimeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
	ip := dev.IPAddr()
	glog.Infof("online at %d.%d.%d.%d", ip[0], ip[1], ip[2], ip[3])
	return nil
}

func shell(dev *hci.Device) {
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := parts[0]

		var err error
		switch cmd {
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return

		case "help", "?":
			printHelp()

		case "status":
			ip := dev.IPAddr()
			avail, total := dev.BufferCredits()
			fmt.Printf("connected=%v dhcp=%v ip=%d.%d.%d.%d credits=%d/%d\n",
				dev.Connected(), dev.DHCPComplete(),
				ip[0], ip[1], ip[2], ip[3], avail, total)

		case "dns":
			err = resolve(dev, parts[1:])

		case "get":
			err = httpGet(dev, parts[1:])

		case "disconnect":
			_, err = dev.WlanDisconnect()

		default:
			fmt.Printf("Unknown command: %s (type 'help' for available commands)\n", cmd)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  help              - Show this help message")
	fmt.Println("  status            - Show connection status")
	fmt.Println("  dns <host>        - Resolve a hostname")
	fmt.Println("  get <host> [port] - Fetch / from an HTTP server")
	fmt.Println("  disconnect        - Drop the WiFi association")
	fmt.Println("  quit/exit/q       - Exit the program")
	fmt.Println()
}

func resolve(dev *hci.Device, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: dns <host>")
	}
	ip, err := dev.GetHostByName(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %d.%d.%d.%d\n", args[0], ip[0], ip[1], ip[2], ip[3])
	return nil
}

func httpGet(dev *hci.Device, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: get <host> [port]")
	}
	host := args[0]
	port := uint16(80)
	if len(args) == 2 {
		p, err := strconv.ParseUint(args[1], 10, 16)
		if err != nil {
			return fmt.Errorf("bad port %q: %w", args[1], err)
		}
		port = uint16(p)
	}

	ip, err := dev.GetHostByName(host)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", host, err)
	}
	glog.Infof("%s resolved to %d.%d.%d.%d", host, ip[0], ip[1], ip[2], ip[3])

	sd, err := dev.Socket(hci.AFInet, hci.SockStream, hci.IPProtoTCP)
	if err != nil {
		return err
	}
	defer func() {
		if _, err := dev.CloseSocket(sd); err != nil {
			glog.Warningf("close socket %d: %v", sd, err)
		}
	}()

	addr := hci.TCPAddr(ip, port)
	if _, err := dev.Connect(sd, addr); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	request := fmt.Sprintf("GET / HTTP/1.0\r\nHost: %s\r\nConnection: close\r\n\r\n", host)
	if _, err := dev.Send(sd, []byte(request), 0); err != nil {
		return fmt.Errorf("send: %w", err)
	}

	buf := make([]byte, 512)
	for {
		n, err := dev.Recv(sd, buf, 0)
		if err != nil {
			return fmt.Errorf("recv: %w", err)
		}
		if n == 0 {
			break
		}
		os.Stdout.Write(buf[:n])
	}
	fmt.Println()
	return nil
}
