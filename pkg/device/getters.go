package device

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/newtron-network/portfinder/pkg/snapshot"
	"github.com/newtron-network/portfinder/pkg/util"
)

// getterCommands maps getters to the IOS command whose output feeds them.
var getterCommands = map[string]string{
	snapshot.GetterMACTable:   CmdMACTable,
	snapshot.GetterInterfaces: CmdDescriptions,
	snapshot.GetterVLANs:      CmdVLANBrief,
	snapshot.GetterARP:        CmdARP,
	snapshot.GetterSNMP:       CmdSNMPLocation,
}

// Collect runs the commands behind each getter on sess and returns the
// encoded payloads. A getter whose command IOS rejects is left out of the
// result; transport errors abort the collection. When snmp is non-nil the
// location is read over SNMP first and the CLI is only used if that fails.
func Collect(ctx context.Context, sess Session, getters []string, snmp *SNMPConfig) (snapshot.RawState, error) {
	raw := snapshot.RawState{}
	for _, getter := range getters {
		if getter == snapshot.GetterSNMP && snmp != nil {
			loc, err := SysLocation(ctx, *snmp)
			if err == nil {
				if err := put(raw, getter, SNMPRow{Location: loc}); err != nil {
					return nil, err
				}
				continue
			}
			util.WithField("target", snmp.Address).Debugf("SNMP location failed, falling back to CLI: %v", err)
		}

		command, ok := getterCommands[getter]
		if !ok {
			return nil, fmt.Errorf("unsupported getter %q", getter)
		}
		output, err := sess.Run(ctx, command)
		if err != nil {
			return nil, err
		}
		if err := checkOutput(command, output); err != nil {
			util.WithField("getter", getter).Warnf("Skipping getter: %v", err)
			continue
		}

		var payload interface{}
		switch getter {
		case snapshot.GetterMACTable:
			payload = ParseMACTable(output)
		case snapshot.GetterInterfaces:
			payload = ParseInterfaceDescriptions(output)
		case snapshot.GetterVLANs:
			payload = ParseVLANBrief(output)
		case snapshot.GetterARP:
			payload = ParseARP(output)
		case snapshot.GetterSNMP:
			payload = SNMPRow{Location: ParseSNMPLocation(output)}
		}
		if err := put(raw, getter, payload); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func put(raw snapshot.RawState, getter string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", getter, err)
	}
	raw[getter] = data
	return nil
}

// RunChecked runs a read command and reports an IOS error marker as a
// CommandError.
func RunChecked(ctx context.Context, sess Session, command string) (string, error) {
	output, err := sess.Run(ctx, command)
	if err != nil {
		return output, err
	}
	return output, checkOutput(command, output)
}
