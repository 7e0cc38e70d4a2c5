package device

import (
	"fmt"
	"net"
	"os"
)

type Address struct {
	Address  string `json:"address"`
	Netmask  string `json:"netmask"`
	Family   string `json:"family"`
	MAC      string `json:"mac"`
	Internal bool   `json:"internal"`
}

type Interface struct {
	Name       string    `json:"name"`
	Interfaces []Address `json:"interfaces"`
}

type NetworkInfo struct {
	Hostname   string      `json:"hostname"`
	Interfaces []Interface `json:"interfaces"`
}

// Network lists the host's interfaces and their addresses.
func Network() (*NetworkInfo, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	info := &NetworkInfo{Hostname: host, Interfaces: []Interface{}}
	for _, iface := range ifaces {
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		out := Interface{Name: iface.Name, Interfaces: []Address{}}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			family := "IPv6"
			if ipnet.IP.To4() != nil {
				family = "IPv4"
			}
			out.Interfaces = append(out.Interfaces, Address{
				Address:  ipnet.IP.String(),
				Netmask:  net.IP(ipnet.Mask).String(),
				Family:   family,
				MAC:      iface.HardwareAddr.String(),
				Internal: iface.Flags&net.FlagLoopback != 0,
			})
		}
		info.Interfaces = append(info.Interfaces, out)
	}
	return info, nil
}
