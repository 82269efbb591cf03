package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/droneauth/droneauth-go/pkg/transport"
	"github.com/droneauth/droneauth-go/pkg/version"
)

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "GS-5000", (&StationInfo{}).InstanceName())
	assert.Equal(t, "GS-6100", (&StationInfo{Port: 6100}).InstanceName())
	assert.NoError(t, ValidateInstanceName("GS-5000"))
	assert.ErrorIs(t, ValidateInstanceName(""), ErrInstanceNameTooLong)
}

func TestStationTXTRoundTrip(t *testing.T) {
	txt := EncodeStationTXT(&StationInfo{Source: "groundStation", Hash: "sha256"})
	assert.Equal(t, version.Current, txt[TXTKeyVersion])

	strs := TXTRecordsToStrings(txt)
	assert.Equal(t, []string{"hash=sha256", "id=groundStation", "v=" + version.Current}, strs)

	info, err := DecodeStationTXT(StringsToTXTRecords(strs))
	require.NoError(t, err)
	assert.Equal(t, "groundStation", info.Source)
	assert.Equal(t, "sha256", info.Hash)
}

func TestDecodeStationTXTErrors(t *testing.T) {
	_, err := DecodeStationTXT(TXTRecordMap{TXTKeySource: "x"})
	assert.ErrorIs(t, err, ErrMissingRequired)

	_, err = DecodeStationTXT(TXTRecordMap{TXTKeyVersion: "2.0"})
	assert.ErrorIs(t, err, ErrInvalidTXTRecord)
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "flag", "", "b=x=y"})
	assert.Equal(t, TXTRecordMap{"a": "1", "flag": "", "b": "x=y"}, txt)
}

func newEntry(instance string, port int, text []string, v4 ...string) *zeroconf.ServiceEntry {
	e := &zeroconf.ServiceEntry{ServiceRecord: zeroconf.ServiceRecord{Instance: instance, Service: ServiceType, Domain: Domain}}
	e.HostName = "station.local."
	e.Port = port
	e.Text = text
	for _, a := range v4 {
		e.AddrIPv4 = append(e.AddrIPv4, net.ParseIP(a))
	}
	return e
}

func TestEntryToStation(t *testing.T) {
	e := newEntry("GS-5000", 5000, []string{"v=1.0", "id=gs"}, "192.168.1.10")
	e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}

	svc := entryToStation(e)
	require.NotNil(t, svc)
	assert.Equal(t, "GS-5000", svc.InstanceName)
	assert.Equal(t, uint16(5000), svc.Port)
	assert.Equal(t, []string{"192.168.1.10", "fe80::1"}, svc.Addresses)
	assert.Equal(t, "gs", svc.Source)

	assert.Nil(t, entryToStation(newEntry("GS-1", 1, []string{"v=9.0"})))
	assert.Nil(t, entryToStation(newEntry("GS-1", 1, nil)))
}

func TestStationServiceAddr(t *testing.T) {
	svc := &StationService{InstanceName: "GS-5000", Port: 5000, Addresses: []string{"fe80::1", "10.0.0.2"}}
	addr, err := svc.Addr()
	require.NoError(t, err)
	assert.Equal(t, transport.Addr{Host: "10.0.0.2", Port: 5000}, addr)

	svc.Addresses = []string{"bogus", "fe80::1"}
	addr, err = svc.Addr()
	require.NoError(t, err)
	assert.Equal(t, "fe80::1", addr.Host)

	svc.Addresses = nil
	_, err = svc.Addr()
	assert.ErrorIs(t, err, ErrNoAddress)
}

func TestMergeAndRemoveAddresses(t *testing.T) {
	merged := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "10.0.0.2"})
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, merged)

	left := removeAddresses(merged, newEntry("GS-5000", 5000, nil, "10.0.0.1"))
	assert.Equal(t, []string{"10.0.0.2"}, left)
}

func TestFirstUsable(t *testing.T) {
	results := make(chan *StationService, 2)
	results <- &StationService{InstanceName: "GS-1"}
	results <- &StationService{InstanceName: "GS-2", Port: 5000, Addresses: []string{"10.0.0.9"}}

	svc, err := firstUsable(context.Background(), results, "")
	require.NoError(t, err)
	assert.Equal(t, "GS-2", svc.InstanceName)

	close(results)
	_, err = firstUsable(context.Background(), results, "")
	assert.ErrorIs(t, err, ErrNotFound)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = firstUsable(ctx, make(chan *StationService), "")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestFirstUsableSkipsOtherHash(t *testing.T) {
	results := make(chan *StationService, 3)
	results <- &StationService{InstanceName: "GS-1", Port: 5000, Addresses: []string{"10.0.0.1"}, Hash: "sha512"}
	results <- &StationService{InstanceName: "GS-2", Port: 5000, Addresses: []string{"10.0.0.2"}, Hash: "sha256"}
	close(results)

	svc, err := firstUsable(context.Background(), results, "sha256")
	require.NoError(t, err)
	assert.Equal(t, "GS-2", svc.InstanceName)
}

func TestDefaultConfigs(t *testing.T) {
	assert.Equal(t, DefaultTTL, DefaultAdvertiserConfig().TTL)
	assert.Equal(t, BrowseTimeout, DefaultBrowserConfig().BrowseTimeout)

	b := NewMDNSBrowser(BrowserConfig{})
	assert.Equal(t, BrowseTimeout, b.config.BrowseTimeout)
	b.Stop()

	a := NewMDNSAdvertiser(DefaultAdvertiserConfig())
	assert.NoError(t, a.Stop())
}
