package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "product not found: abc", (&ErrNotFound{Resource: "product", ID: "abc"}).Error())
	assert.Equal(t, "cart not found", (&ErrNotFound{Resource: "cart"}).Error())

	assert.Equal(t, "invalid quantity: must be a positive integer",
		(&ErrValidation{Field: "quantity", Message: "must be a positive integer"}).Error())
	assert.Equal(t, "something went wrong", (&ErrValidation{Message: "something went wrong"}).Error())

	assert.Equal(t, "invalid cart state: cart is empty",
		(&ErrInvalidCartState{Reason: "cart is empty"}).Error())

	assert.Equal(t, "insufficient stock for product p1: requested 5, available 2",
		(&ErrInsufficientStock{ProductID: "p1", Requested: 5, Available: 2}).Error())

	assert.Equal(t, "invalid state transition from Paid to Pending",
		(&ErrInvalidStateTransition{From: "Paid", To: "Pending"}).Error())
}
