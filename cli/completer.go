package cli

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/viert/vigiconf/store"
	"github.com/viert/vigiconf/stringslice"
)

type completeFunc func([]rune) ([][]rune, int)

type completer struct {
	cmds     []string
	handlers map[string]completeFunc
	store    *store.Store
}

func newCompleter(store *store.Store, commands []string) *completer {
	x := &completer{commands, make(map[string]completeFunc), store}
	x.handlers["mode"] = staticCompleter([]string{"remote", "local"})
	x.handlers["debug"] = onOffCompleter()
	x.handlers["progressbar"] = onOffCompleter()
	x.handlers["skip_invalid"] = onOffCompleter()
	x.handlers["hostlist"] = x.completeExpr
	x.handlers["resolve"] = x.completeExpr
	x.handlers["ventilate"] = x.completeExpr
	x.handlers["placements"] = x.completeExpr
	x.handlers["disable"] = x.completeServers
	x.handlers["enable"] = x.completeServers
	x.handlers["output"] = completeFiles

	helpTopics := append(commands, "expressions", "config", "rcfiles")
	x.handlers["help"] = staticCompleter(helpTopics)
	return x
}

func split(line []rune) ([]rune, []rune) {
	strline := string(line)
	tokens := whitespace.Split(strline, 2)
	if len(tokens) < 2 {
		return []rune(tokens[0]), nil
	}
	return []rune(tokens[0]), []rune(tokens[1])
}

func runes(src []string) (dst [][]rune) {
	dst = make([][]rune, len(src))
	for i := 0; i < len(src); i++ {
		dst[i] = []rune(src[i])
	}
	return
}

func runeIndex(line []rune, sym rune) int {
	for i := 0; i < len(line); i++ {
		if line[i] == sym {
			return i
		}
	}
	return -1
}

func staticCompleter(options []string) completeFunc {
	sort.Strings(options)
	return func(line []rune) ([][]rune, int) {
		ll := len(line)
		sr := make([]string, 0)
		for _, option := range options {
			if strings.HasPrefix(option, string(line)) {
				sr = append(sr, option[ll:])
			}
		}
		return runes(sr), ll
	}
}

func onOffCompleter() completeFunc {
	return staticCompleter([]string{"on", "off"})
}

func completeFiles(line []rune) ([][]rune, int) {
	ll := len(line)
	path := string(line)
	files, err := filepath.Glob(path + "*")
	if err != nil {
		return [][]rune{}, len(line)
	}

	results := make([][]rune, len(files))
	for i := 0; i < len(files); i++ {
		filename := files[i]
		if st, err := os.Stat(filename); err == nil {
			if st.IsDir() {
				filename += "/"
			}
		}
		results[i] = []rune(filename[ll:])
	}

	return results, ll
}

func (x *completer) complete(line []rune) ([][]rune, int) {
	cmd, args := split(line)
	if args == nil {
		return x.completeCommand(cmd)
	}

	if handler, found := x.handlers[string(cmd)]; found {
		return handler(args)
	}

	return [][]rune{}, 0
}

func (x *completer) completeCommand(line []rune) ([][]rune, int) {
	sr := make([]string, 0)
	for _, cmd := range x.cmds {
		if strings.HasPrefix(cmd, string(line)) {
			sr = append(sr, cmd[len(line):]+" ")
		}
	}
	sort.Strings(sr)
	return runes(sr), len(line)
}

func (x *completer) completeExpr(line []rune) ([][]rune, int) {
	_, rest := split(line)
	if rest != nil {
		return [][]rune{}, 0
	}

	// are we in complex pattern? look for comma
	ci := runeIndex(line, ',')
	if ci >= 0 {
		return x.completeExpr(line[ci+1:])
	}

	// we are exactly in the beginning of the last expression
	if len(line) > 0 && line[0] == '-' {
		// exclusion is excluded from completion
		return x.completeExpr(line[1:])
	}

	if len(line) > 0 && line[0] == '%' {
		return x.completeGroup(line[1:])
	}

	return x.completeHost(line)
}

func (x *completer) completeGroup(line []rune) ([][]rune, int) {
	// no completion for regexp filters
	if ri := runeIndex(line, '/'); ri > 0 {
		return [][]rune{}, 0
	}
	groups := x.store.CompleteGroup(string(line))
	return runes(groups), len(line)
}

func (x *completer) completeHost(line []rune) ([][]rune, int) {
	hosts := x.store.CompleteHost(string(line))
	return runes(hosts), len(line)
}

// completeServers completes the last of space-separated server names
func (x *completer) completeServers(line []rune) ([][]rune, int) {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] == ' ' {
			return x.completeServers(line[i+1:])
		}
	}
	servers := x.store.CompleteServer(string(line))
	return runes(servers), len(line)
}

func (x *completer) Do(line []rune, pos int) ([][]rune, int) {
	postfix := line[pos:]
	result, length := x.complete(line[:pos])
	if len(postfix) > 0 {
		for i := 0; i < len(result); i++ {
			result[i] = append(result[i], postfix...)
		}
	}
	return result, length
}

func (x *completer) removeCommand(name string) {
	x.cmds = stringslice.Remove(x.cmds, name)
}
