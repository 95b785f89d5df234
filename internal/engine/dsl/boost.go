package dsl

import (
	"github.com/kailas-cloud/shelfsearch/internal/domain/search/boost"
)

// Painless scripts of the scoring pipeline. A non-positive base score (filter-only
// query) falls back to params.default_score.
const (
	baseScoreScript     = "_score > 0 ? _score : params.default_score"
	addScoreScript      = "(_score > 0 ? _score : params.default_score) + params.factor"
	multiplyScoreScript = "(_score > 0 ? _score : params.default_score) * params.factor"
)

// FunctionScore wraps base in a scoring pipeline: one base function followed
// by one gated function per boost. The pipeline score replaces the native
// relevance score and the highest applicable function wins.
func FunctionScore(base Query, boosts []boost.Spec, defaultScore float64) Query {
	functions := make([]Query, 0, len(boosts)+1)
	functions = append(functions, Query{
		"script_score": scriptScore(baseScoreScript, Query{"default_score": defaultScore}),
	})

	for _, b := range boosts {
		source := addScoreScript
		if b.Operation == boost.Multiply {
			source = multiplyScoreScript
		}
		functions = append(functions, Query{
			"filter": Term(b.Field, b.Value),
			"script_score": scriptScore(source, Query{
				"default_score": defaultScore,
				"factor":        b.Factor,
			}),
		})
	}

	return Query{"function_score": Query{
		"query":      base,
		"functions":  functions,
		"score_mode": "max",
		"boost_mode": "replace",
	}}
}

func scriptScore(source string, params Query) Query {
	return Query{"script": Query{
		"source": source,
		"params": params,
	}}
}
