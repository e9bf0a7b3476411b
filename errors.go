/*
 * errors.go, part of ddtrek.
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

package ddtrek

import "fmt"

// Error is the interface for errors in ddtrek and its subpackages.
// Decorate adds information when an error is passed up the call stack;
// each call returns the current decoration slice. Passing an empty
// string just returns the current value without adding to it.
type Error interface {
	error
	Decorate(string) []string
}

// RecordError is the interface for errors tied to a single job record.
// Critical distinguishes failures that abort the whole job from the
// ones where the runner logs and moves to the next line.
type RecordError interface {
	Error
	Critical() bool
}

// CError is the concrete Error implementation of the root package.
type CError struct {
	message  string
	context  string //the record or file the failure belongs to, if any
	deco     []string
	critical bool
}

func (err CError) Error() string {
	if err.context == "" {
		return err.message
	}
	return fmt.Sprintf("%s: %s", err.message, err.context)
}

// Decorate adds new information to the error
func (err CError) Decorate(deco string) []string {
	if deco != "" {
		err.deco = append(err.deco, deco)
	}
	return err.deco
}

func (err CError) Critical() bool { return err.critical }

// errDecorate asserts that the error implements Error and decorates it
// with the caller's name before returning it.
func errDecorate(err error, caller string) error {
	err2, ok := err.(Error)
	if !ok {
		return fmt.Errorf("%s: %w", caller, err)
	}
	err2.Decorate(caller)
	return err2
}

const (
	MalformedRecord      = "Malformed record line"
	DuplicateEntry       = "Entry is already loaded"
	UnsupportedFormat    = "Unsupported or unreadable map file"
	MissingMapColumns    = "Amplitude/phase columns not found"
	NoLigandAtoms        = "Ligand atom file absent or empty"
	DirectoryNotWritable = "Folder with the job input file should be writable"
)
