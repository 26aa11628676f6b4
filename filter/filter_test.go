package filter

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTranslator() *Translator {
	return NewTranslator(Text,
		Field{Name: "country"},
		Field{Name: "year", Kind: KindNumeric},
		Field{Name: "genre"},
		Field{Name: "active"},
	)
}

func TestTranslate_CanonicalForms(t *testing.T) {
	tr := testTranslator()

	tests := []struct {
		name string
		expr Expression
		want string
	}{
		{"nil", nil, ""},
		{"eq string", Eq("country", "BG"), "country == 'BG'"},
		{"eq number", Eq("year", 2020), "year == 2020"},
		{"float", Gt("year", 2020.5), "year > 2020.5"},
		{"bool", Ne("active", false), "active != false"},
		{"lte", Lte("year", int64(1999)), "year <= 1999"},
		{"and", And(Eq("country", "BG"), Eq("year", 2020)), "country == 'BG' && year == 2020"},
		{"or", Or(Eq("country", "BG"), Eq("country", "NL")), "country == 'BG' || country == 'NL'"},
		{"not", Not(Eq("country", "BG")), "NOT(country == 'BG')"},
		{"not of group", Not(And(Eq("country", "BG"), Lt("year", 2000))), "NOT((country == 'BG' && year < 2000))"},
		{"nested", And(Eq("country", "BG"), Or(Gte("year", 2020), Eq("genre", "drama"))),
			"country == 'BG' && (year >= 2020 || genre == 'drama')"},
		{"n-ary and", And(Eq("country", "BG"), Eq("year", 2020), Eq("genre", "x")),
			"(country == 'BG' && year == 2020) && genre == 'x'"},
		{"in", In("genre", "drama", "noir"), "genre IN ['drama','noir']"},
		{"in slice", In("year", []int{2019, 2020}), "year IN [2019,2020]"},
		{"nin", Nin("country", "BG"), "country NOT IN ['BG']"},
		{"quote escaped", Eq("genre", "rock'n'roll"), `genre == 'rock\'n\'roll'`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tr.Translate(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslate_UnsupportedField(t *testing.T) {
	tr := testTranslator()

	_, err := tr.Translate(And(Eq("country", "BG"), Eq("author", "john")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedField))

	var ufe *UnsupportedFilterError
	require.ErrorAs(t, err, &ufe)
	assert.Equal(t, "author", ufe.Field)
	assert.Equal(t, []string{"active", "country", "genre", "year"}, ufe.Allowed)
}

func TestTranslate_InvalidLiterals(t *testing.T) {
	tr := testTranslator()

	tests := []struct {
		name string
		expr Expression
		want error
	}{
		{"nil value", Eq("country", nil), ErrInvalidLiteral},
		{"struct value", Eq("country", struct{}{}), ErrInvalidLiteral},
		{"list for eq", Comparison{Field: "country", Op: EQ, Value: []string{"a"}}, ErrInvalidLiteral},
		{"scalar for in", Comparison{Field: "country", Op: IN, Value: "a"}, ErrInvalidLiteral},
		{"empty in", In("country"), ErrInvalidLiteral},
		{"unknown op", Comparison{Field: "country", Op: "like", Value: "a"}, ErrUnsupportedOperator},
		{"empty field", Eq("", "a"), ErrInvalidExpression},
		{"empty and", AndExpr{}, ErrInvalidExpression},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tr.Translate(tt.expr)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestConstructors_DropNil(t *testing.T) {
	assert.Nil(t, And())
	assert.Nil(t, Or(nil, nil))
	assert.Nil(t, Not(nil))
	assert.Equal(t, Eq("a", 1), And(nil, Eq("a", 1)))
}

func TestString_RendersWithoutAllowList(t *testing.T) {
	e := And(Eq("anything", "x"), Not(Gt("n", 3)))
	assert.Equal(t, "anything == 'x' && NOT(n > 3)", e.String())
}

func TestFields(t *testing.T) {
	e := Or(And(Eq("a", 1), Eq("b", 2)), Not(Eq("a", 3)), In("c", "x"))
	assert.Equal(t, []string{"a", "b", "c"}, Fields(e))
	assert.Empty(t, Fields(nil))
}

func TestParseJSON(t *testing.T) {
	e, err := ParseJSON([]byte(`{"op":"and","args":[
		{"op":"eq","field":"country","value":"BG"},
		{"op":"not","args":[{"op":"in","field":"year","value":[2019,2020]}]}
	]}`))
	require.NoError(t, err)

	got, err := testTranslator().Translate(e)
	require.NoError(t, err)
	assert.Equal(t, "country == 'BG' && NOT(year IN [2019,2020])", got)

	e, err = ParseJSON([]byte(" null "))
	require.NoError(t, err)
	assert.Nil(t, e)

	_, err = ParseJSON([]byte(`{"op":"eq","field":"x"}`))
	assert.ErrorIs(t, err, ErrInvalidLiteral)

	_, err = ParseJSON([]byte(`{"op":"not","args":[]}`))
	assert.ErrorIs(t, err, ErrInvalidExpression)

	_, err = ParseJSON([]byte(`{"op":"like","field":"x","value":1}`))
	assert.ErrorIs(t, err, ErrUnsupportedOperator)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("numeric")
	require.NoError(t, err)
	assert.Equal(t, KindNumeric, k)

	k, err = ParseKind("")
	require.NoError(t, err)
	assert.Equal(t, KindTag, k)

	_, err = ParseKind("geo")
	assert.Error(t, err)
}
