package test

import (
	"math/rand"
	"strings"
)

const validTokens = "def;extern;foo;bar;x;y;(;);,;+;-;*;<;1;42;365;3.25;.5;#this is a comment\n;\n"

func GetRandomTokens(size int) string {
	return GetRandomTokensWithSep(size, " ")
}

func GetRandomTokensWithSep(size int, sep string) string {
	valid := strings.Split(validTokens, ";")

	var toks []string
	for len(toks) < size {
		toks = append(toks, valid[rand.Intn(len(valid))])
	}

	return strings.Join(toks, sep)
}
