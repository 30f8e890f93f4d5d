package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordClassifier(t *testing.T) {
	tests := []struct {
		text string
		want Intent
	}{
		{"Book 2 tickets for the Jazz Night.", Intent{Intent: IntentBook, EventName: "Jazz Night", Quantity: 2}},
		{"I want to buy three tickets for Homecoming Concert", Intent{Intent: IntentBook, EventName: "Homecoming", Quantity: 3}},
		{"please reserve a seat to Tiger Paw Gala", Intent{Intent: IntentBook, EventName: "Tiger Paw Gala", Quantity: 1}},
		{"book tickets", Intent{Intent: IntentBook, Quantity: 1}},
		{"show me upcoming events", Intent{Intent: IntentList, Quantity: 1}},
		{"hey there", Intent{Intent: IntentGreeting, Quantity: 1}},
		{"what is the weather", Intent{Intent: IntentUnknown, Quantity: 1}},
		{"", Intent{Intent: IntentUnknown, Quantity: 1}},
		{"ȺȺȺ book 2 tickets for Jazz Night", Intent{Intent: IntentBook, EventName: "Jazz Night", Quantity: 2}},
		{"Book 1 ticket FOR Café Ünïcode Night", Intent{Intent: IntentBook, EventName: "Café Ünïcode Night", Quantity: 1}},
	}

	c := NewKeywordClassifier()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got, err := c.Classify(context.Background(), tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *got)
		})
	}
}
