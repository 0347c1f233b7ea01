// Package bledb names the Bluetooth SIG assigned numbers a broadcast audio
// scan delegator and assistant come across.
//
// Lookups accept any of the usual UUID spellings: "184f", "0x184F",
// "0000184f-0000-1000-8000-00805f9b34fb", with or without braces.
package bledb

import (
	"strings"
)

const sigBaseSuffix = "00001000800000805f9b34fb"

var services = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"184e": "Audio Stream Control",
	"184f": "Broadcast Audio Scan",
	"1850": "Published Audio Capabilities",
	"1851": "Basic Audio Announcement",
	"1852": "Broadcast Audio Announcement",
	"1853": "Common Audio",
	"1856": "Public Broadcast Announcement",
}

var characteristics = map[string]string{
	"2a00": "Device Name",
	"2a01": "Appearance",
	"2a05": "Service Changed",
	"2bc7": "Broadcast Audio Scan Control Point",
	"2bc8": "Broadcast Receive State",
	"2bc9": "Sink PAC",
	"2bca": "Sink Audio Locations",
	"2bcb": "Source PAC",
	"2bcc": "Source Audio Locations",
	"2bcd": "Available Audio Contexts",
	"2bce": "Supported Audio Contexts",
}

var descriptors = map[string]string{
	"2900": "Characteristic Extended Properties",
	"2901": "Characteristic User Description",
	"2902": "Client Characteristic Configuration",
	"2903": "Server Characteristic Configuration",
	"2904": "Characteristic Presentation Format",
}

// NormalizeUUID lowercases uuid, strips braces, dashes and a 0x prefix, and
// shortens UUIDs on the Bluetooth base to their 16-bit form.
func NormalizeUUID(uuid string) string {
	s := strings.ToLower(strings.TrimSpace(uuid))
	s = strings.Trim(s, "{}")
	s = strings.TrimPrefix(s, "0x")
	s = strings.ReplaceAll(s, "-", "")

	if len(s) == 32 && strings.HasSuffix(s, sigBaseSuffix) {
		s = s[:8]
	}
	if len(s) == 8 && strings.HasPrefix(s, "0000") {
		s = s[4:]
	}
	return s
}

// NormalizeUUIDs applies NormalizeUUID to every element.
func NormalizeUUIDs(uuids []string) []string {
	out := make([]string, len(uuids))
	for i, u := range uuids {
		out[i] = NormalizeUUID(u)
	}
	return out
}

// LookupService returns the service name, or "" if unknown.
func LookupService(uuid string) string {
	return services[NormalizeUUID(uuid)]
}

// LookupCharacteristic returns the characteristic name, or "" if unknown.
func LookupCharacteristic(uuid string) string {
	return characteristics[NormalizeUUID(uuid)]
}

// LookupDescriptor returns the descriptor name, or "" if unknown.
func LookupDescriptor(uuid string) string {
	return descriptors[NormalizeUUID(uuid)]
}

// Lookup searches every table.
func Lookup(uuid string) string {
	key := NormalizeUUID(uuid)
	for _, table := range []map[string]string{services, characteristics, descriptors} {
		if name, ok := table[key]; ok {
			return name
		}
	}
	return ""
}
