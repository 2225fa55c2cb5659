package orderapi

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Encode writes the item as a JSON object.
func (s *Item) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("id")
	e.Str(s.ID)
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("price")
	encodeDecimal(e, s.Price)
	e.FieldStart("qty")
	e.Int(s.Qty)
	if s.Image != "" {
		e.FieldStart("image")
		e.Str(s.Image)
	}
	e.ObjEnd()
}

// Decode reads the item from a JSON object. Unknown fields are skipped.
func (s *Item) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "id":
			s.ID, err = decodeString(d)
		case "name":
			s.Name, err = decodeString(d)
		case "price":
			s.Price, err = decodeDecimal(d)
		case "qty":
			s.Qty, err = decodeInt(d)
		case "image":
			s.Image, err = decodeString(d)
		default:
			return d.Skip()
		}
		return wrapField(err, key)
	})
}

// Encode writes the request as a JSON object.
func (s *CreateOrderRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("userId")
	e.Str(s.UserID)
	e.FieldStart("items")
	e.ArrStart()
	for i := range s.Items {
		s.Items[i].Encode(e)
	}
	e.ArrEnd()
	e.FieldStart("totalAmount")
	encodeDecimal(e, s.TotalAmount)
	e.ObjEnd()
}

// Decode reads the request from a JSON object.
func (s *CreateOrderRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "userId":
			s.UserID, err = decodeString(d)
		case "items":
			s.Items = s.Items[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				var it Item
				if err := it.Decode(d); err != nil {
					return err
				}
				s.Items = append(s.Items, it)
				return nil
			})
		case "totalAmount":
			s.TotalAmount, err = decodeDecimal(d)
		default:
			return d.Skip()
		}
		return wrapField(err, key)
	})
}

// Encode writes the response as a JSON object.
func (s *CreateOrderResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("orderId")
	e.Str(s.OrderID)
	e.FieldStart("msg")
	e.Str(s.Msg)
	e.ObjEnd()
}

// Decode reads the response from a JSON object.
func (s *CreateOrderResponse) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "orderId":
			s.OrderID, err = decodeString(d)
		case "msg":
			s.Msg, err = decodeString(d)
		default:
			return d.Skip()
		}
		return wrapField(err, key)
	})
}

// Encode writes the login request using the field names of the original
// login form.
func (s *LoginRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("remail")
	e.Str(s.Email)
	e.FieldStart("rpassword")
	e.Str(s.Password)
	e.ObjEnd()
}

// Decode reads the login request.
func (s *LoginRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "remail":
			s.Email, err = decodeString(d)
		case "rpassword":
			s.Password, err = decodeString(d)
		default:
			return d.Skip()
		}
		return wrapField(err, key)
	})
}

// Encode writes the user as a JSON object. The identifier keeps the
// document database's "_id" name.
func (s *User) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("_id")
	e.Str(s.ID)
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("email")
	e.Str(s.Email)
	e.FieldStart("phone")
	e.Str(s.Phone)
	e.FieldStart("pic")
	e.Str(s.Pic)
	e.FieldStart("gender")
	e.Str(s.Gender)
	e.ObjEnd()
}

// Decode reads the user. Phone may arrive as a JSON number.
func (s *User) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "_id":
			s.ID, err = decodeString(d)
		case "name":
			s.Name, err = decodeString(d)
		case "email":
			s.Email, err = decodeString(d)
		case "phone":
			s.Phone, err = decodeString(d)
		case "pic":
			s.Pic, err = decodeString(d)
		case "gender":
			s.Gender, err = decodeString(d)
		default:
			return d.Skip()
		}
		return wrapField(err, key)
	})
}

// Encode writes {"user": ..., "msg": ...}.
func (s *UserResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("user")
	s.User.Encode(e)
	e.FieldStart("msg")
	e.Str(s.Msg)
	e.ObjEnd()
}

// Decode reads {"user": ..., "msg": ...}.
func (s *UserResponse) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "user":
			err = s.User.Decode(d)
		case "msg":
			s.Msg, err = decodeString(d)
		default:
			return d.Skip()
		}
		return wrapField(err, key)
	})
}

// Encode writes {"msg": ...}.
func (s *Message) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("msg")
	e.Str(s.Msg)
	e.ObjEnd()
}

// Decode reads {"msg": ...}.
func (s *Message) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "msg" {
			return d.Skip()
		}
		var err error
		s.Msg, err = decodeString(d)
		return err
	})
}

// Marshal encodes any of the schema types into a fresh byte slice.
func Marshal(v interface{ Encode(*jx.Encoder) }) []byte {
	var e jx.Encoder
	v.Encode(&e)
	return e.Bytes()
}

// Unmarshal decodes data into any of the schema types.
func Unmarshal(data []byte, v interface{ Decode(*jx.Decoder) error }) error {
	return v.Decode(jx.DecodeBytes(data))
}

func encodeDecimal(e *jx.Encoder, v decimal.Decimal) {
	e.Raw([]byte(v.String()))
}

// decodeDecimal accepts a JSON number or a numeric string.
func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Null:
		return decimal.Zero, d.Null()
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}

// decodeString accepts a JSON string, a number (kept verbatim) or null.
func decodeString(d *jx.Decoder) (string, error) {
	switch d.Next() {
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return n.String(), nil
	case jx.Null:
		return "", d.Null()
	default:
		return d.Str()
	}
}

func decodeInt(d *jx.Decoder) (int, error) {
	if d.Next() == jx.Null {
		return 0, d.Null()
	}
	return d.Int()
}

func wrapField(err error, key []byte) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, "decode field %q", key)
}
