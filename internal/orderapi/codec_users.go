package orderapi

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// Encode writes the registration form.
func (s *RegisterRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("email")
	e.Str(s.Email)
	e.FieldStart("phone")
	e.Str(s.Phone)
	e.FieldStart("password")
	e.Str(s.Password)
	if s.Pic != "" {
		e.FieldStart("pic")
		e.Str(s.Pic)
	}
	e.FieldStart("gender")
	e.Str(s.Gender)
	e.ObjEnd()
}

// Decode reads the registration form. Phone may arrive as a number.
func (s *RegisterRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "name":
			s.Name, err = decodeString(d)
		case "email":
			s.Email, err = decodeString(d)
		case "phone":
			s.Phone, err = decodeString(d)
		case "password":
			s.Password, err = decodeString(d)
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

// Encode writes the profile update. Pic is written only when set.
func (s *UpdateProfileRequest) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("uid")
	e.Str(s.UID)
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("email")
	e.Str(s.Email)
	e.FieldStart("phone")
	e.Str(s.Phone)
	if s.Pic != nil {
		e.FieldStart("pic")
		e.Str(*s.Pic)
	}
	e.FieldStart("gender")
	e.Str(s.Gender)
	e.ObjEnd()
}

// Decode reads the profile update. Pic stays nil unless it is a string.
func (s *UpdateProfileRequest) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "uid":
			s.UID, err = decodeString(d)
		case "name":
			s.Name, err = decodeString(d)
		case "email":
			s.Email, err = decodeString(d)
		case "phone":
			s.Phone, err = decodeString(d)
		case "pic":
			if d.Next() != jx.String {
				return d.Skip()
			}
			var pic string
			pic, err = d.Str()
			s.Pic = &pic
		case "gender":
			s.Gender, err = decodeString(d)
		default:
			return d.Skip()
		}
		return wrapField(err, key)
	})
}

// Encode writes {"user": [...]}.
func (s *ProfilesResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("user")
	e.ArrStart()
	for i := range s.Users {
		s.Users[i].Encode(e)
	}
	e.ArrEnd()
	e.ObjEnd()
}

// Decode reads {"user": [...]}.
func (s *ProfilesResponse) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "user" {
			return d.Skip()
		}
		s.Users = s.Users[:0]
		return wrapField(d.Arr(func(d *jx.Decoder) error {
			var u User
			if err := u.Decode(d); err != nil {
				return err
			}
			s.Users = append(s.Users, u)
			return nil
		}), key)
	})
}

// Encode writes the stored order line.
func (s *OrderItem) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("productId")
	e.Str(s.ProductID)
	e.FieldStart("name")
	e.Str(s.Name)
	e.FieldStart("price")
	encodeDecimal(e, s.Price)
	e.FieldStart("qty")
	e.Int(s.Qty)
	e.FieldStart("image")
	e.Str(s.Image)
	e.ObjEnd()
}

// Decode reads a stored order line.
func (s *OrderItem) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "productId":
			s.ProductID, err = decodeString(d)
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

// Encode writes the stored order using the document field names.
func (s *Order) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("_id")
	e.Str(s.ID)
	e.FieldStart("user")
	e.Str(s.UserID)
	e.FieldStart("items")
	e.ArrStart()
	for i := range s.Items {
		s.Items[i].Encode(e)
	}
	e.ArrEnd()
	e.FieldStart("totalAmount")
	encodeDecimal(e, s.TotalAmount)
	e.FieldStart("createdAt")
	e.Str(s.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("status")
	e.Str(s.Status)
	e.ObjEnd()
}

// Decode reads a stored order.
func (s *Order) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var err error
		switch string(key) {
		case "_id":
			s.ID, err = decodeString(d)
		case "user":
			s.UserID, err = decodeString(d)
		case "items":
			s.Items = s.Items[:0]
			err = d.Arr(func(d *jx.Decoder) error {
				var it OrderItem
				if err := it.Decode(d); err != nil {
					return err
				}
				s.Items = append(s.Items, it)
				return nil
			})
		case "totalAmount":
			s.TotalAmount, err = decodeDecimal(d)
		case "createdAt":
			var raw string
			if raw, err = decodeString(d); err == nil && raw != "" {
				s.CreatedAt, err = time.Parse(time.RFC3339Nano, raw)
				if err != nil {
					err = errors.Wrap(err, "parse time")
				}
			}
		case "status":
			s.Status, err = decodeString(d)
		default:
			return d.Skip()
		}
		return wrapField(err, key)
	})
}

// Encode writes {"orders": [...]}.
func (s *OrdersResponse) Encode(e *jx.Encoder) {
	e.ObjStart()
	e.FieldStart("orders")
	e.ArrStart()
	for i := range s.Orders {
		s.Orders[i].Encode(e)
	}
	e.ArrEnd()
	e.ObjEnd()
}

// Decode reads {"orders": [...]}.
func (s *OrdersResponse) Decode(d *jx.Decoder) error {
	return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) != "orders" {
			return d.Skip()
		}
		s.Orders = s.Orders[:0]
		return wrapField(d.Arr(func(d *jx.Decoder) error {
			var o Order
			if err := o.Decode(d); err != nil {
				return err
			}
			s.Orders = append(s.Orders, o)
			return nil
		}), key)
	})
}
