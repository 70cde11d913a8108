package tape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPromoteLattice(t *testing.T) {
	tests := []struct {
		name     string
		start    Kind
		observed Kind
		want     Kind
	}{
		{"undetermined adopts int", KindUndetermined, KindInt, KindInt},
		{"undetermined adopts date", KindUndetermined, KindDate, KindDate},
		{"undetermined adopts pooled", KindUndetermined, KindPooledString, KindPooledString},
		{"int widens to float", KindInt, KindFloat, KindFloat},
		{"float absorbs int", KindFloat, KindInt, KindFloat},
		{"int and bool widen to string", KindInt, KindBool, KindString},
		{"date and int widen to string", KindDate, KindInt, KindString},
		{"date and datetime widen to string", KindDate, KindDateTime, KindString},
		{"bool and float widen to string", KindBool, KindFloat, KindString},
		{"pooled widens to string", KindPooledString, KindString, KindString},
		{"string is terminal vs int", KindString, KindInt, KindString},
		{"string is terminal vs pooled", KindString, KindPooledString, KindString},
		{"same kind is a no-op", KindFloat, KindFloat, KindFloat},
		{"observed undetermined is a no-op", KindDate, KindUndetermined, KindDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Promote(TypeCode{Kind: tt.start}, tt.observed)
			assert.Equal(t, tt.want, got.Kind)
		})
	}
}

func TestPromoteUserDeclaredNeverChanges(t *testing.T) {
	for _, observed := range []Kind{KindInt, KindFloat, KindString, KindBool} {
		got := Promote(Declared(KindInt), observed)
		assert.Equal(t, KindInt, got.Kind)
		assert.True(t, got.User)
	}
}

func TestPromotePreservesMissingFlag(t *testing.T) {
	tc := TypeCode{Kind: KindInt}.WithMissing()
	got := Promote(tc, KindFloat)
	assert.Equal(t, KindFloat, got.Kind)
	assert.True(t, got.Missing)
}

func TestWithMissingIndependentOfKind(t *testing.T) {
	tc := TypeCode{Kind: KindDate}
	got := tc.WithMissing()
	assert.Equal(t, KindDate, got.Kind)
	assert.True(t, got.Missing)
	// original untouched
	assert.False(t, tc.Missing)
}

func TestTerminal(t *testing.T) {
	assert.True(t, TypeCode{Kind: KindString}.Terminal())
	assert.True(t, Declared(KindInt).Terminal())
	assert.False(t, TypeCode{Kind: KindPooledString}.Terminal())
	assert.False(t, TypeCode{Kind: KindInt}.Terminal())
}

func TestParseKind(t *testing.T) {
	for _, name := range []string{"int", "float", "date", "datetime", "bool", "pooled", "string"} {
		k, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, name, k.String())
	}
	_, err := ParseKind("decimal")
	assert.Error(t, err)
}

func TestTypeCodeString(t *testing.T) {
	assert.Equal(t, "int", TypeCode{Kind: KindInt}.String())
	assert.Equal(t, "float|missing", TypeCode{Kind: KindFloat}.WithMissing().String())
	assert.Equal(t, "date|user", Declared(KindDate).String())
}
