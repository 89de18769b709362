package store

import (
	"fmt"
	"regexp"
	"strings"
)

type tokenType int
type parserstate int

const (
	tTypeHost tokenType = iota
	tTypeGroup
	tTypeHostRegexp
)

const (
	stateWait parserstate = iota
	stateReadHost
	stateReadGroup
	stateReadHostBracePattern
	stateReadRegexp
)

type token struct {
	Type         tokenType
	Value        string
	RegexpFilter *regexp.Regexp
	Exclude      bool
}

var (
	hostSymbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789.-_{}"
)

func newToken() *token {
	return new(token)
}

// parseExpression splits a host expression into tokens.
//
//	host1.example.com,host{2..4}    hosts and host patterns
//	%Servers                        hosts of a group and all its subgroups
//	%/Servers/Linux                 same, group given by its path
//	%Servers/^web/                  group hosts filtered by regexp
//	/^db\d+/                        all hosts matching a regexp
//	-host3                          exclusion
func parseExpression(expr []rune) ([]*token, error) {
	ct := newToken()
	res := make([]*token, 0)
	state := stateWait
	re := ""
	last := false
	for i := 0; i < len(expr); i++ {
		sym := expr[i]
		last = i == len(expr)-1
		switch state {
		case stateWait:
			if sym == '-' {
				ct.Exclude = true
				continue
			}

			if sym == '%' {
				state = stateReadGroup
				ct.Type = tTypeGroup
				continue
			}

			if sym == '/' || sym == '~' {
				state = stateReadRegexp
				ct.Type = tTypeHostRegexp
				re = ""
				continue
			}

			if strings.ContainsRune(hostSymbols, sym) {
				ct.Type = tTypeHost
				if sym == '{' {
					state = stateReadHostBracePattern
				} else {
					state = stateReadHost
				}
				ct.Value += string(sym)
				if last {
					res = append(res, ct)
					ct = newToken()
					state = stateWait
				}
				continue
			}

			return nil, fmt.Errorf("Invalid symbol %s, expected -, %%, / or a hostname at position %d", string(sym), i)

		case stateReadGroup:
			// a leading slash is a part of an absolute group path
			if sym == '/' && ct.Value != "" && !strings.HasPrefix(ct.Value, "/") {
				state = stateReadRegexp
				re = ""
				continue
			}

			if sym == ',' || last {
				if last && sym != ',' {
					ct.Value += string(sym)
				}

				if ct.Value == "" {
					return nil, fmt.Errorf("Empty group name at position %d", i)
				}
				res = append(res, ct)
				ct = newToken()
				state = stateWait
				continue
			}

			ct.Value += string(sym)

		case stateReadRegexp:
			if sym == '\\' && !last && expr[i+1] == '/' {
				// screened slash
				re += "/"
				i++
				continue
			}

			if sym == '/' {
				compiled, err := regexp.Compile(re)
				if err != nil {
					return nil, fmt.Errorf("error compiling regexp at %d: %s", i, err)
				}
				ct.RegexpFilter = compiled

				res = append(res, ct)
				ct = newToken()
				state = stateWait
				// regexp should stop with '/EOL' or with '/,'
				// however stateWait doesn't expect a comma, so
				// we skip it:
				if !last && expr[i+1] == ',' {
					i++
				}
				continue
			}
			re += string(sym)

		case stateReadHost:
			if sym == '{' {
				state = stateReadHostBracePattern
			}

			if sym == ',' || last {
				if last && sym != ',' {
					ct.Value += string(sym)
				}
				res = append(res, ct)
				ct = newToken()
				state = stateWait
				continue
			}

			ct.Value += string(sym)

		case stateReadHostBracePattern:
			if sym == '{' {
				return nil, fmt.Errorf("nested patterns are not allowed (at %d)", i)
			}
			ct.Value += string(sym)
			if sym == '}' {
				state = stateReadHost
				if last {
					res = append(res, ct)
					ct = newToken()
					state = stateWait
				}
			}
		}
	}

	if state == stateReadHostBracePattern || state == stateReadRegexp {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	if ct.Value != "" {
		res = append(res, ct)
	} else if state != stateWait {
		return nil, fmt.Errorf("unexpected end of expression")
	}

	return res, nil
}
