/*
 * rpc.go, part of ddtrek.
 *
 * Copyright 2024 Biocrystallography, KU Leuven
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package pymol

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAddr is where pymol -R listens.
const DefaultAddr = "http://127.0.0.1:9123"

// RPCSession drives a PyMOL instance through its XML-RPC server. Every
// Session method maps to the PyMOL cmd function of the same name, with
// positional arguments.
type RPCSession struct {
	addr   string
	client *http.Client
}

// NewRPCSession returns a session talking to the given address, or to
// DefaultAddr if addr is empty.
func NewRPCSession(addr string) *RPCSession {
	if addr == "" {
		addr = DefaultAddr
	}
	return &RPCSession{
		addr:   addr,
		client: &http.Client{Timeout: 300 * time.Second},
	}
}

// Ping checks that the server answers at all, so a bad address fails
// before any job work is done.
func (s *RPCSession) Ping() error {
	_, err := s.call("get_version")
	return err
}

func (s *RPCSession) Load(path, name string) error {
	_, err := s.call("load", path, name)
	return err
}

func (s *RPCSession) Save(path, sele string) error {
	_, err := s.call("save", path, sele)
	return err
}

func (s *RPCSession) Create(name, sele string) error {
	_, err := s.call("create", name, sele)
	return err
}

func (s *RPCSession) Delete(name string) error {
	_, err := s.call("delete", name)
	return err
}

func (s *RPCSession) ObjectList() ([]string, error) {
	v, err := s.call("get_names", "objects")
	if err != nil {
		return nil, err
	}
	return v.strings(), nil
}

func (s *RPCSession) Chains(sele string) ([]string, error) {
	v, err := s.call("get_chains", sele)
	if err != nil {
		return nil, err
	}
	return v.strings(), nil
}

func (s *RPCSession) SymExp(prefix, object, sele string, cutoff float64) error {
	//trailing 1 sets segi, so symmetry copies get unique segment ids
	_, err := s.call("symexp", prefix, object, sele, cutoff, 1)
	return err
}

func (s *RPCSession) Remove(sele string) error {
	_, err := s.call("remove", sele)
	return err
}

func (s *RPCSession) Super(mobile, target string) error {
	_, err := s.call("super", mobile, target)
	return err
}

func (s *RPCSession) MatrixCopy(source, target string) error {
	_, err := s.call("matrix_copy", source, target)
	return err
}

func (s *RPCSession) Color(color, sele string) error {
	_, err := s.call("color", color, sele)
	return err
}

// ColorList asks the server for its color index table and returns the
// color names.
func (s *RPCSession) ColorList() ([]string, error) {
	v, err := s.call("get_color_indices")
	if err != nil {
		return nil, err
	}
	//the table comes back as an array of (name, index) pairs
	var names []string
	for _, pair := range v.Array {
		if len(pair.Array) > 0 {
			names = append(names, pair.Array[0].text())
		}
	}
	return names, nil
}

func (s *RPCSession) Show(repr, sele string) error {
	_, err := s.call("show", repr, sele)
	return err
}

func (s *RPCSession) Hide(repr, sele string) error {
	_, err := s.call("hide", repr, sele)
	return err
}

func (s *RPCSession) Isomesh(name, mapName string, level float64, sele string, carve float64) error {
	//positional form: name, map, level, selection, buffer, state, carve
	_, err := s.call("isomesh", name, mapName, level, sele, 0.0, 1, carve)
	return err
}

func (s *RPCSession) Group(name, members string) error {
	_, err := s.call("group", name, members)
	return err
}

func (s *RPCSession) GroupAdd(group, members string) error {
	_, err := s.call("group", group, members, "add")
	return err
}

func (s *RPCSession) Set(name, value, sele string) error {
	if sele == "" {
		_, err := s.call("set", name, value)
		return err
	}
	_, err := s.call("set", name, value, sele)
	return err
}

func (s *RPCSession) Disable(name string) error {
	_, err := s.call("disable", name)
	return err
}

func (s *RPCSession) Refresh() error {
	_, err := s.call("refresh")
	return err
}

func (s *RPCSession) Zoom(sele string) error {
	_, err := s.call("zoom", sele)
	return err
}

//XML-RPC wire types. Only the value shapes PyMOL actually sends and
//receives are covered: string, int, double, boolean and arrays.

type methodCall struct {
	XMLName xml.Name `xml:"methodCall"`
	Method  string   `xml:"methodName"`
	Params  []wparam `xml:"params>param"`
}

type wparam struct {
	Value wvalue `xml:"value"`
}

type wvalue struct {
	Str     *string  `xml:"string,omitempty"`
	Int     *int     `xml:"int,omitempty"`
	Double  *float64 `xml:"double,omitempty"`
	Boolean *int     `xml:"boolean,omitempty"`
}

type methodResponse struct {
	XMLName xml.Name `xml:"methodResponse"`
	Params  []rparam `xml:"params>param"`
	Fault   *rfault  `xml:"fault"`
}

type rparam struct {
	Value rvalue `xml:"value"`
}

type rvalue struct {
	Str   string   `xml:"string"`
	Chars string   `xml:",chardata"`
	Array []rvalue `xml:"array>data>value"`
}

type rfault struct {
	Raw string `xml:",innerxml"`
}

// text returns the scalar content of a value; a bare value with no type
// element is a string per the XML-RPC spec.
func (v rvalue) text() string {
	if v.Str != "" {
		return v.Str
	}
	return strings.TrimSpace(v.Chars)
}

func (v rvalue) strings() []string {
	out := make([]string, 0, len(v.Array))
	for _, e := range v.Array {
		out = append(out, e.text())
	}
	return out
}

func wrap(arg interface{}) (wparam, error) {
	var v wvalue
	switch a := arg.(type) {
	case string:
		v.Str = &a
	case int:
		v.Int = &a
	case float64:
		v.Double = &a
	case bool:
		b := 0
		if a {
			b = 1
		}
		v.Boolean = &b
	default:
		return wparam{}, fmt.Errorf("unsupported argument type %T", arg)
	}
	return wparam{Value: v}, nil
}

func (s *RPCSession) call(method string, args ...interface{}) (rvalue, error) {
	req := methodCall{Method: method}
	for _, a := range args {
		p, err := wrap(a)
		if err != nil {
			return rvalue{}, Error{err.Error(), method, nil, true}
		}
		req.Params = append(req.Params, p)
	}
	body, err := xml.Marshal(req)
	if err != nil {
		return rvalue{}, Error{err.Error(), method, nil, true}
	}
	buf := bytes.NewBufferString(xml.Header)
	buf.Write(body)
	resp, err := s.client.Post(s.addr, "text/xml", buf)
	if err != nil {
		return rvalue{}, Error{ServerUnreachable + ": " + err.Error(), method, nil, true}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return rvalue{}, Error{err.Error(), method, nil, true}
	}
	var mr methodResponse
	if err := xml.Unmarshal(raw, &mr); err != nil {
		return rvalue{}, Error{WrongReply + ": " + err.Error(), method, nil, true}
	}
	if mr.Fault != nil {
		return rvalue{}, Error{"server fault: " + flatten(mr.Fault.Raw), method, nil, false}
	}
	if len(mr.Params) == 0 {
		return rvalue{}, nil
	}
	return mr.Params[0].Value, nil
}

func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

//Errors

// Error is the pymol implementation of the ddtrek decorate-able error.
// The filename slot carries the RPC method instead.
type Error struct {
	message  string
	method   string
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return "pymol " + err.method + ": " + err.message
}

func (err Error) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

func (err Error) Critical() bool { return err.critical }

const (
	ServerUnreachable = "PyMOL RPC server not reachable"
	WrongReply        = "Reply is not a valid methodResponse"
)
