package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/userdir/internal/directory"
)

// WriteUsersCSV serialises directory records to CSV in the given order.
func WriteUsersCSV(w io.Writer, users []directory.User) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"ID", "Name", "Username", "Email", "Company", "City", "Zipcode"}); err != nil {
		return err
	}
	for _, u := range users {
		if err := writer.Write([]string{
			strconv.Itoa(u.ID),
			u.Name,
			u.Username,
			u.Email,
			u.CompanyName(),
			u.City(),
			u.Zipcode(),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
