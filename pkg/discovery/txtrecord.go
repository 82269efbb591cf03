package discovery

import (
	"fmt"
	"sort"
	"strings"

	"github.com/droneauth/droneauth-go/pkg/version"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeStationTXT creates TXT records for a station.
func EncodeStationTXT(info *StationInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	v := info.Version
	if v == "" {
		v = version.Current
	}
	txt[TXTKeyVersion] = v

	if info.Source != "" {
		txt[TXTKeySource] = info.Source
	}
	if info.Hash != "" {
		txt[TXTKeyHash] = info.Hash
	}
	return txt
}

// DecodeStationTXT parses station TXT records. The version must be present
// and compatible with version.Current.
func DecodeStationTXT(txt TXTRecordMap) (*StationInfo, error) {
	v, ok := txt[TXTKeyVersion]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyVersion)
	}
	if !version.CompatibleString(v) {
		return nil, fmt.Errorf("%w: incompatible version %q", ErrInvalidTXTRecord, v)
	}
	return &StationInfo{
		Version: v,
		Source:  txt[TXTKeySource],
		Hash:    txt[TXTKeyHash],
	}, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if parts[0] != "" {
			txt[parts[0]] = ""
		}
	}
	return txt
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
