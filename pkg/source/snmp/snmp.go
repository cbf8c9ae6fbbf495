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
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gosnmp/gosnmp"
	"golang.org/x/time/rate"

	"github.com/NVIDIA/hwtelemetry/pkg/config"
	"github.com/NVIDIA/hwtelemetry/pkg/connector"
	"github.com/NVIDIA/hwtelemetry/pkg/defaults"
	"github.com/NVIDIA/hwtelemetry/pkg/telemetry"
)

// Source modes.
const (
	ModeGet   = "get"
	ModeTable = "table"
)

// ColumnID selects the row index of a walked table.
const ColumnID = "ID"

// Client is the subset of an SNMP session used by the handler.
type Client interface {
	Get(oids []string) (*gosnmp.SnmpPacket, error)
	WalkAll(rootOid string) ([]gosnmp.SnmpPDU, error)
	Close() error
}

// Dialer opens a session to target.
type Dialer func(ctx context.Context, target string, cfg config.SNMPConfiguration) (Client, error)

// Handler serves "snmp" sources. Requests to one host are paced by a
// token bucket shared by every connector of that host.
type Handler struct {
	cfg  config.SNMPConfiguration
	dial Dialer

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHandler returns a handler using cfg. A nil dial selects gosnmp over UDP.
func NewHandler(cfg *config.SNMPConfiguration, dial Dialer) *Handler {
	c := config.SNMPConfiguration{}
	if cfg != nil {
		c = *cfg
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.SNMPTimeout
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = defaults.SNMPRequestsPerSecond
	}
	if dial == nil {
		dial = Dial
	}
	return &Handler{cfg: c, dial: dial, limiters: make(map[string]*rate.Limiter)}
}

func (h *Handler) limiter(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l, ok := h.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(h.cfg.RequestsPerSecond), 1)
		h.limiters[host] = l
	}
	return l
}

// Handle runs a get or a table walk against the host of state.
func (h *Handler) Handle(ctx context.Context, src connector.Source, _ string, state *telemetry.State) (telemetry.Table, error) {
	oid := strings.TrimSpace(src.OID)
	if oid == "" {
		return telemetry.Table{}, fmt.Errorf("snmp source %s has no oid", src.Key)
	}
	host := state.Hostname()

	if err := h.limiter(host).Wait(ctx); err != nil {
		return telemetry.Table{}, err
	}

	client, err := h.dial(ctx, host, h.cfg)
	if err != nil {
		return telemetry.Table{}, fmt.Errorf("failed to connect to %s: %w", host, err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			slog.Debug("failed to close snmp session", "host", host, "error", cerr)
		}
	}()

	switch strings.ToLower(src.Mode) {
	case "", ModeGet:
		return get(client, oid)
	case ModeTable:
		pdus, err := client.WalkAll(oid)
		if err != nil {
			return telemetry.Table{}, fmt.Errorf("walk %s: %w", oid, err)
		}
		return BuildTable(oid, src.Columns, pdus), nil
	default:
		return telemetry.Table{}, fmt.Errorf("unsupported snmp mode %q", src.Mode)
	}
}

func get(client Client, oid string) (telemetry.Table, error) {
	pkt, err := client.Get([]string{oid})
	if err != nil {
		return telemetry.Table{}, fmt.Errorf("get %s: %w", oid, err)
	}
	if pkt.Error != gosnmp.NoError {
		return telemetry.Table{}, fmt.Errorf("get %s: %s", oid, pkt.Error)
	}
	if len(pkt.Variables) == 0 {
		return telemetry.EmptyTable(), nil
	}
	v, ok := Value(pkt.Variables[0])
	if !ok {
		return telemetry.EmptyTable(), nil
	}
	return telemetry.Table{Rows: [][]string{{v}}, RawData: v}, nil
}

// BuildTable arranges the PDUs of a walk under root into rows, one per
// instance index in walk order. columns selects the column sub-ids;
// ColumnID yields the index itself. An empty selection keeps every column
// in walk order.
func BuildTable(root string, columns []string, pdus []gosnmp.SnmpPDU) telemetry.Table {
	prefix := strings.TrimPrefix(root, ".") + "."

	var (
		indexes []string
		seenCol []string
		values  = make(map[string]map[string]string)
	)
	for _, pdu := range pdus {
		rest, ok := strings.CutPrefix(strings.TrimPrefix(pdu.Name, "."), prefix)
		if !ok {
			continue
		}
		col, index, ok := strings.Cut(rest, ".")
		if !ok {
			continue
		}
		v, ok := Value(pdu)
		if !ok {
			continue
		}
		row, seen := values[index]
		if !seen {
			row = make(map[string]string)
			values[index] = row
			indexes = append(indexes, index)
		}
		if _, known := row[col]; !known && !contains(seenCol, col) {
			seenCol = append(seenCol, col)
		}
		row[col] = v
	}

	if len(columns) == 0 {
		columns = seenCol
	}
	t := telemetry.EmptyTable()
	for _, index := range indexes {
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			if col == ColumnID {
				row = append(row, index)
				continue
			}
			row = append(row, values[index][col])
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Value renders a PDU as text. Missing objects report false.
func Value(pdu gosnmp.SnmpPDU) (string, bool) {
	switch pdu.Type {
	case gosnmp.NoSuchObject, gosnmp.NoSuchInstance, gosnmp.EndOfMibView, gosnmp.Null:
		return "", false
	case gosnmp.OctetString:
		b, ok := pdu.Value.([]byte)
		if !ok {
			return fmt.Sprint(pdu.Value), true
		}
		return strings.TrimRight(string(b), "\x00"), true
	case gosnmp.ObjectIdentifier, gosnmp.IPAddress:
		return fmt.Sprint(pdu.Value), true
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.Counter64,
		gosnmp.TimeTicks, gosnmp.Uinteger32:
		return gosnmp.ToBigInt(pdu.Value).String(), true
	default:
		return fmt.Sprint(pdu.Value), true
	}
}

type session struct {
	*gosnmp.GoSNMP
}

func (s session) Close() error {
	if s.Conn == nil {
		return nil
	}
	return s.Conn.Close()
}

// Dial opens a gosnmp session to target.
func Dial(ctx context.Context, target string, cfg config.SNMPConfiguration) (Client, error) {
	g := &gosnmp.GoSNMP{
		Context:            ctx,
		Target:             target,
		Port:               cfg.Port,
		Community:          cfg.Community,
		Timeout:            cfg.Timeout,
		Retries:            cfg.Retries,
		MaxOids:            gosnmp.MaxOids,
		MaxRepetitions:     10,
		ExponentialTimeout: true,
	}
	if g.Port == 0 {
		g.Port = 161
	}
	if g.Community == "" {
		g.Community = "public"
	}
	switch cfg.Version {
	case "1", "v1":
		g.Version = gosnmp.Version1
	case "", "2", "2c", "v2c":
		g.Version = gosnmp.Version2c
	default:
		return nil, fmt.Errorf("unsupported snmp version %q", cfg.Version)
	}
	if err := g.Connect(); err != nil {
		return nil, err
	}
	return session{GoSNMP: g}, nil
}
