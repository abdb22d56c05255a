package flatip

import (
	"bytes"
	"math/rand"
	"net"
	"testing"
	"time"
)

func easyParseIP(ipstr string) (result net.IP) {
	result = net.ParseIP(ipstr)
	if result == nil {
		panic(ipstr)
	}
	return
}

func easyParseFlat(ipstr string) (result IP) {
	x := easyParseIP(ipstr)
	return FromNetIP(x)
}

func TestBasic(t *testing.T) {
	nip := easyParseIP("8.8.8.8")
	flatip := FromNetIP(nip)
	if flatip.String() != "8.8.8.8" {
		t.Errorf("conversions don't work")
	}
}

func TestParseIP(t *testing.T) {
	ip, err := ParseIP("8.8.8.8")
	if err != nil || ip.String() != "8.8.8.8" {
		t.Errorf("can't parse IPv4")
	}
	ip, err = ParseIP("2001:0db8::1")
	if err != nil || ip.String() != "2001:db8::1" {
		t.Errorf("can't parse IPv6")
	}
	if _, err = ParseIP("1.2.3.4.5"); err == nil {
		t.Errorf("parsed an invalid address")
	}
	// the error return matters here; the zero value is a valid address
	if _, err = ParseIP(""); err == nil {
		t.Errorf("parsed the empty string")
	}
}

func TestContains(t *testing.T) {
	_, flatipnet, err := ParseCIDR("8.8.0.0/16")
	if err != nil {
		panic(err)
	}
	flatip_ := easyParseFlat("8.8.8.8")
	if !flatipnet.Contains(flatip_) {
		t.Errorf("contains doesn't work")
	}
	if flatipnet.Contains(easyParseFlat("8.9.0.1")) {
		t.Errorf("contains matches out-of-network addresses")
	}
}

func TestNormalizedEquality(t *testing.T) {
	// FromNetIPNet masks the address so equal CIDRs compare ==
	_, a, err := ParseCIDR("8.8.8.8/16")
	if err != nil {
		panic(err)
	}
	_, b, err := ParseCIDR("8.8.0.0/16")
	if err != nil {
		panic(err)
	}
	if a != b {
		t.Errorf("equal CIDRs should be ==: %v, %v", a, b)
	}
}

func TestParseToNormalizedNet(t *testing.T) {
	// a bare address becomes the /128 containing it
	ipnet, err := ParseToNormalizedNet("1.2.3.4")
	if err != nil {
		t.Fatalf("could not parse bare address: %v", err)
	}
	if ipnet.PrefixLen != 128 || !ipnet.Contains(easyParseFlat("1.2.3.4")) {
		t.Errorf("bare address did not normalize to its own /128")
	}
	if ipnet.Contains(easyParseFlat("1.2.3.5")) {
		t.Errorf("single-address network matched a neighbor")
	}

	ipnet, err = ParseToNormalizedNet("10.0.0.0/8")
	if err != nil {
		t.Fatalf("could not parse CIDR: %v", err)
	}
	if !ipnet.Contains(easyParseFlat("10.11.12.13")) {
		t.Errorf("CIDR containment failed")
	}

	if _, err = ParseToNormalizedNet("chommy"); err == nil {
		t.Errorf("parsed a nonsense mask")
	}
}

var testIPStrs = []string{
	"8.8.8.8",
	"127.0.0.1",
	"1.1.1.1",
	"128.127.65.64",
	"2001:0db8::1",
	"::1",
	"255.255.255.255",
}

func doMaskingTest(ip net.IP, t *testing.T) {
	flat := FromNetIP(ip)
	netLen := len(ip) * 8
	for i := 0; i < netLen; i++ {
		masked := flat.Mask(i, netLen)
		netMask := net.CIDRMask(i, netLen)
		netMasked := ip.Mask(netMask)
		if !bytes.Equal(masked[:], netMasked.To16()) {
			t.Errorf("Masking %s with %d/%d; expected %s, got %s", ip.String(), i, netLen, netMasked.String(), masked.String())
		}
	}
}

func TestMasking(t *testing.T) {
	for _, ipstr := range testIPStrs {
		doMaskingTest(easyParseIP(ipstr), t)
	}
}

func TestMaskingFuzz(t *testing.T) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	buf := make([]byte, 4)
	for i := 0; i < 10000; i++ {
		r.Read(buf)
		doMaskingTest(net.IP(buf), t)
	}

	buf = make([]byte, 16)
	for i := 0; i < 10000; i++ {
		r.Read(buf)
		doMaskingTest(net.IP(buf), t)
	}
}

func BenchmarkMasking(b *testing.B) {
	ip := easyParseIP("2001:0db8::42")
	flat := FromNetIP(ip)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		flat.Mask(64, 128)
	}
}

func BenchmarkContains(b *testing.B) {
	ip := easyParseIP("2001:0db8::42")
	flat := FromNetIP(ip)
	_, ipnet, err := net.ParseCIDR("2001:0db8::/64")
	if err != nil {
		panic(err)
	}
	flatnet := FromNetIPNet(*ipnet)
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		flatnet.Contains(flat)
	}
}
