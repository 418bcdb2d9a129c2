/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package db

import "strings"

// sqlSplitter walks a migration file and cuts it at top-level semicolons.
// Semicolons inside quotes, comments and $tag$ bodies are kept.
type sqlSplitter struct {
	src        string
	pos        int
	current    strings.Builder
	statements []string
}

func splitSQLStatements(content string) []string {
	s := &sqlSplitter{src: content}
	s.run()

	return s.statements
}

func (s *sqlSplitter) run() {
	for s.pos < len(s.src) {
		rest := s.src[s.pos:]

		switch {
		case strings.HasPrefix(rest, "--"):
			s.skipUntil("\n", false)
		case strings.HasPrefix(rest, "/*"):
			s.skipUntil("*/", true)
		case rest[0] == '\'' || rest[0] == '"':
			s.copyQuoted(rest[0])
		case rest[0] == '$':
			s.copyDollar()
		case rest[0] == ';':
			s.flush()
			s.pos++
		default:
			s.current.WriteByte(rest[0])
			s.pos++
		}
	}

	s.flush()
}

func (s *sqlSplitter) flush() {
	if stmt := strings.TrimSpace(s.current.String()); stmt != "" {
		s.statements = append(s.statements, stmt)
	}

	s.current.Reset()
}

// skipUntil drops text up to terminator; consume also drops the terminator.
func (s *sqlSplitter) skipUntil(terminator string, consume bool) {
	idx := strings.Index(s.src[s.pos:], terminator)
	if idx < 0 {
		s.pos = len(s.src)
		return
	}

	s.pos += idx
	if consume {
		s.pos += len(terminator)
	}
}

func (s *sqlSplitter) copyQuoted(quote byte) {
	s.current.WriteByte(quote)
	s.pos++

	for s.pos < len(s.src) {
		ch := s.src[s.pos]
		s.current.WriteByte(ch)
		s.pos++

		if ch == quote {
			return
		}
	}
}

func (s *sqlSplitter) copyDollar() {
	tag := dollarTag(s.src[s.pos:])
	if tag == "" {
		s.current.WriteByte('$')
		s.pos++

		return
	}

	end := strings.Index(s.src[s.pos+len(tag):], tag)
	if end < 0 {
		s.current.WriteString(s.src[s.pos:])
		s.pos = len(s.src)

		return
	}

	stop := s.pos + len(tag) + end + len(tag)
	s.current.WriteString(s.src[s.pos:stop])
	s.pos = stop
}

// dollarTag returns the $tag$ opening content, or "" for a positional
// parameter such as $1.
func dollarTag(content string) string {
	for i := 1; i < len(content); i++ {
		ch := content[i]

		if ch == '$' {
			if i > 1 && content[1] >= '0' && content[1] <= '9' {
				return ""
			}

			return content[:i+1]
		}

		isWord := ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9')
		if !isWord {
			return ""
		}
	}

	return ""
}
