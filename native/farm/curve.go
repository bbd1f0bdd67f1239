package farm

import (
	"math/big"

	"github.com/holiman/uint256"
)

// Curve prices trades against the two pool reserves:
//
//	out = (S*outputReserve) / (S/2 + (S*inputReserve + (S/2)*input) / input)
//
// All arithmetic is unsigned 256-bit with truncating division, evaluated in
// exactly that order.
type Curve struct {
	scale *uint256.Int
	half  *uint256.Int
}

// NewCurve builds a curve for the fixed-point scale S.
func NewCurve(scale uint64) Curve {
	s := uint256.NewInt(scale)
	return Curve{scale: s, half: new(uint256.Int).Rsh(s, 1)}
}

// Trade maps input against the reserves. Purchases call it as
// Trade(value, heldValue, poolUnits); redemptions as Trade(units, poolUnits, heldValue).
func (c Curve) Trade(input, inputReserve, outputReserve *big.Int) (*big.Int, error) {
	in, err := toUint256(input)
	if err != nil {
		return nil, err
	}
	if in.IsZero() {
		return big.NewInt(0), nil
	}
	inRes, err := toUint256(inputReserve)
	if err != nil {
		return nil, err
	}
	outRes, err := toUint256(outputReserve)
	if err != nil {
		return nil, err
	}
	out, err := c.trade(in, inRes, outRes)
	if err != nil {
		return nil, err
	}
	return out.ToBig(), nil
}

func (c Curve) trade(in, inRes, outRes *uint256.Int) (*uint256.Int, error) {
	numerator, overflow := new(uint256.Int).MulOverflow(c.scale, outRes)
	if overflow {
		return nil, ErrCurveOverflow
	}
	scaledReserve, overflow := new(uint256.Int).MulOverflow(c.scale, inRes)
	if overflow {
		return nil, ErrCurveOverflow
	}
	scaledInput, overflow := new(uint256.Int).MulOverflow(c.half, in)
	if overflow {
		return nil, ErrCurveOverflow
	}
	sum, overflow := new(uint256.Int).AddOverflow(scaledReserve, scaledInput)
	if overflow {
		return nil, ErrCurveOverflow
	}
	quotient := new(uint256.Int).Div(sum, in)
	denominator, overflow := new(uint256.Int).AddOverflow(c.half, quotient)
	if overflow {
		return nil, ErrCurveOverflow
	}
	if denominator.IsZero() {
		return uint256.NewInt(0), nil
	}
	return numerator.Div(numerator, denominator), nil
}

func toUint256(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return uint256.NewInt(0), nil
	}
	if v.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrCurveOverflow
	}
	return out, nil
}
