// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package snmp

import (
	"context"
	"errors"
	"testing"

	"github.com/gosnmp/gosnmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NVIDIA/hwtelemetry/pkg/config"
	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

type fakeClient struct {
	get    *gosnmp.SnmpPacket
	walk   []gosnmp.SnmpPDU
	err    error
	closed bool
}

func (f *fakeClient) Get([]string) (*gosnmp.SnmpPacket, error) { return f.get, f.err }
func (f *fakeClient) WalkAll(string) ([]gosnmp.SnmpPDU, error)  { return f.walk, f.err }
func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func pdu(name string, typ gosnmp.Asn1BER, v any) gosnmp.SnmpPDU {
	return gosnmp.SnmpPDU{Name: name, Type: typ, Value: v}
}

func TestValue(t *testing.T) {
	tests := []struct {
		name   string
		pdu    gosnmp.SnmpPDU
		want   string
		wantOK bool
	}{
		{"octet string", pdu(".1", gosnmp.OctetString, []byte("disk\x00")), "disk", true},
		{"integer", pdu(".1", gosnmp.Integer, 42), "42", true},
		{"counter64", pdu(".1", gosnmp.Counter64, uint64(1<<40)), "1099511627776", true},
		{"gauge", pdu(".1", gosnmp.Gauge32, uint(7)), "7", true},
		{"oid", pdu(".1", gosnmp.ObjectIdentifier, ".1.3.6"), ".1.3.6", true},
		{"no such object", pdu(".1", gosnmp.NoSuchObject, nil), "", false},
		{"no such instance", pdu(".1", gosnmp.NoSuchInstance, nil), "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Value(tt.pdu)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildTable(t *testing.T) {
	root := "1.3.6.1.4.1.9.1"
	pdus := []gosnmp.SnmpPDU{
		pdu(".1.3.6.1.4.1.9.1.2.1", gosnmp.OctetString, []byte("sda")),
		pdu(".1.3.6.1.4.1.9.1.2.2", gosnmp.OctetString, []byte("sdb")),
		pdu(".1.3.6.1.4.1.9.1.3.1", gosnmp.Integer, 2),
		pdu(".1.3.6.1.4.1.9.1.3.2", gosnmp.Integer, 4),
		pdu(".1.3.6.1.4.1.9.2.1.1", gosnmp.Integer, 9),
	}

	got := BuildTable(root, []string{ColumnID, "2", "3", "7"}, pdus)
	assert.Equal(t, [][]string{{"1", "sda", "2", ""}, {"2", "sdb", "4", ""}}, got.Rows)

	got = BuildTable("."+root, nil, pdus)
	assert.Equal(t, [][]string{{"sda", "2"}, {"sdb", "4"}}, got.Rows)

	assert.True(t, BuildTable(root, nil, nil).IsEmpty())
}

func TestHandle(t *testing.T) {
	state := telemetry.NewState(&config.HostConfiguration{Hostname: "array-1"})
	client := &fakeClient{
		get: &gosnmp.SnmpPacket{Variables: []gosnmp.SnmpPDU{pdu(".1.3.6.1.2.1.1.1.0", gosnmp.OctetString, []byte("StorageOS 5.1"))}},
		walk: []gosnmp.SnmpPDU{
			pdu(".1.3.6.1.4.1.9.1.2.1", gosnmp.OctetString, []byte("sda")),
		},
	}
	var dialed string
	h := NewHandler(&config.SNMPConfiguration{RequestsPerSecond: 1000}, func(_ context.Context, target string, _ config.SNMPConfiguration) (Client, error) {
		dialed = target
		return client, nil
	})

	table, err := h.Handle(context.Background(), connector.Source{Type: "snmp", OID: "1.3.6.1.2.1.1.1.0"}, "c1", state)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"StorageOS 5.1"}}, table.Rows)
	assert.Equal(t, "array-1", dialed)
	assert.True(t, client.closed)

	table, err = h.Handle(context.Background(), connector.Source{Type: "snmp", Mode: ModeTable, OID: "1.3.6.1.4.1.9.1", Columns: []string{ColumnID, "2"}}, "c1", state)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "sda"}}, table.Rows)

	_, err = h.Handle(context.Background(), connector.Source{Type: "snmp"}, "c1", state)
	assert.Error(t, err)

	_, err = h.Handle(context.Background(), connector.Source{Type: "snmp", OID: "1.3", Mode: "bulk"}, "c1", state)
	assert.Error(t, err)

	client.err = errors.New("timeout")
	_, err = h.Handle(context.Background(), connector.Source{Type: "snmp", OID: "1.3"}, "c1", state)
	assert.ErrorContains(t, err, "timeout")
}

func TestHandleGetError(t *testing.T) {
	state := telemetry.NewState(&config.HostConfiguration{Hostname: "array-1"})
	client := &fakeClient{get: &gosnmp.SnmpPacket{Error: gosnmp.NoSuchName}}
	h := NewHandler(nil, func(context.Context, string, config.SNMPConfiguration) (Client, error) { return client, nil })
	_, err := h.Handle(context.Background(), connector.Source{Type: "snmp", OID: "1.3"}, "c1", state)
	assert.Error(t, err)
}
