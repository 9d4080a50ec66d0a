package device

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gosnmp/gosnmp"
)

// OIDSysLocation is SNMPv2-MIB::sysLocation.0.
const OIDSysLocation = "1.3.6.1.2.1.1.6.0"

// SNMPConfig identifies an SNMPv2c agent.
type SNMPConfig struct {
	Address   string
	Port      uint16
	Community string
	Timeout   time.Duration
}

// SysLocation reads sysLocation.0 from the agent.
func SysLocation(ctx context.Context, cfg SNMPConfig) (string, error) {
	port := cfg.Port
	if port == 0 {
		port = 161
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = gosnmp.Default.Timeout
	}
	client := &gosnmp.GoSNMP{
		Context:   ctx,
		Target:    cfg.Address,
		Port:      port,
		Community: cfg.Community,
		Version:   gosnmp.Version2c,
		Timeout:   timeout,
		Retries:   1,
	}
	if err := client.Connect(); err != nil {
		return "", fmt.Errorf("SNMP connect %s: %w", cfg.Address, err)
	}
	defer client.Conn.Close()

	result, err := client.Get([]string{OIDSysLocation})
	if err != nil {
		return "", fmt.Errorf("SNMP get sysLocation on %s: %w", cfg.Address, err)
	}
	for _, v := range result.Variables {
		if strings.TrimPrefix(v.Name, ".") != OIDSysLocation {
			continue
		}
		return pduString(v), nil
	}
	return "", nil
}

func pduString(v gosnmp.SnmpPDU) string {
	switch v.Type {
	case gosnmp.OctetString:
		if b, ok := v.Value.([]byte); ok {
			return strings.TrimSpace(string(b))
		}
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.Null:
		return ""
	}
	if s, ok := v.Value.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
