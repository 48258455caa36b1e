package connectivity

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"time"

	"github.com/daniil11ru/tracker/cli/uploader/types"
	log "github.com/sirupsen/logrus"
)

type link struct {
	name string
	up   bool
	ips  []net.IP
}

// InterfaceProber классифицирует сеть по активным интерфейсам: имена из списка
// metered (шаблоны filepath.Match) считаются тарифицируемыми
type InterfaceProber struct {
	metered      []string
	probeAddress string
	timeout      time.Duration

	links func() ([]link, error)
	dial  func(ctx context.Context, network, address string) (net.Conn, error)
}

func NewInterfaceProber(metered []string, probeAddress string, timeout time.Duration) *InterfaceProber {
	dialer := &net.Dialer{Timeout: timeout}
	return &InterfaceProber{
		metered:      metered,
		probeAddress: probeAddress,
		timeout:      timeout,
		links:        systemLinks,
		dial:         dialer.DialContext,
	}
}

func systemLinks() ([]link, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	links := make([]link, 0, len(ifaces))
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		l := link{name: iface.Name, up: iface.Flags&net.FlagUp != 0}
		addrs, err := iface.Addrs()
		if err != nil {
			log.WithFields(log.Fields{"iface": iface.Name, "err": err}).Debug("Не удалось получить адреса интерфейса")
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok {
				l.ips = append(l.ips, ipNet.IP)
			}
		}
		links = append(links, l)
	}
	return links, nil
}

func (p *InterfaceProber) isMetered(name string) bool {
	for _, pattern := range p.metered {
		if ok, _ := filepath.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func usable(l link) bool {
	if !l.up {
		return false
	}
	for _, ip := range l.ips {
		if ip.IsGlobalUnicast() {
			return true
		}
	}
	return false
}

func (p *InterfaceProber) Probe(ctx context.Context) (types.Connectivity, error) {
	links, err := p.links()
	if err != nil {
		return types.Offline, fmt.Errorf("не удалось получить список интерфейсов: %v", err)
	}

	status := types.Offline
	for _, l := range links {
		if !usable(l) {
			continue
		}
		if !p.isMetered(l.name) {
			status = types.OnlineUnmetered
			break
		}
		status = types.OnlineMetered
	}

	if status == types.Offline || p.probeAddress == "" {
		return status, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	conn, err := p.dial(ctx, "tcp", p.probeAddress)
	if err != nil {
		log.WithFields(log.Fields{"address": p.probeAddress, "err": err}).Debug("Адрес проверки недоступен")
		return types.Offline, nil
	}
	conn.Close()
	return status, nil
}
