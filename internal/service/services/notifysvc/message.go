package notifysvc

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dunya-jewellery/shop/internal/service/models/order"
)

type labels struct {
	subtitle string
	name     string
	phone    string
	address  string
	comment  string
	items    string
	size     string
	qty      string
	price    string
	line     string
	total    string
	order    string
	date     string
	customer string
	photo    string
}

var localeLabels = map[order.Locale]labels{
	order.LocaleRU: {
		subtitle: "Новый заказ с официального сайта",
		name:     "Имя",
		phone:    "Телефон",
		address:  "Адрес",
		comment:  "Комментарий",
		items:    "Товары",
		size:     "Размер",
		qty:      "Кол-во",
		price:    "Цена",
		line:     "Сумма",
		total:    "Итого",
		order:    "Заказ",
		date:     "Дата",
		customer: "Заказчик",
		photo:    "Фото",
	},
	order.LocaleUZ: {
		subtitle: "Rasmiy veb-saytdan yangi buyurtma",
		name:     "Ism",
		phone:    "Telefon",
		address:  "Manzil",
		comment:  "Izoh",
		items:    "Taqinchoqlar",
		size:     "O'lcham",
		qty:      "Soni",
		price:    "Narxi",
		line:     "Summa",
		total:    "To'lov summasi",
		order:    "Buyurtma",
		date:     "Sana",
		customer: "Buyurtmachi",
		photo:    "Rasm",
	},
}

func labelsFor(locale order.Locale) labels {
	if l, ok := localeLabels[locale]; ok {
		return l
	}

	return localeLabels[order.LocaleRU]
}

// FormatMessage renders the staff-facing order summary as Telegram HTML.
func FormatMessage(ord order.Order, loc *time.Location) string {
	l := labelsFor(ord.Meta.Locale)
	esc := html.EscapeString

	comment := strings.TrimSpace(ord.Customer.Comment)
	if comment == "" {
		comment = "-"
	}

	var b strings.Builder
	b.WriteString("Dunya Jewellery\n")
	b.WriteString(l.subtitle + "\n\n")
	fmt.Fprintf(&b, "%s: %s\n", l.name, esc(ord.Customer.Name))
	fmt.Fprintf(&b, "%s: %s\n", l.phone, esc(ord.Customer.Phone))
	fmt.Fprintf(&b, "%s: %s\n", l.address, esc(ord.Customer.Address))
	fmt.Fprintf(&b, "%s: %s\n\n", l.comment, esc(comment))

	b.WriteString(l.items + ":\n")
	for i, item := range ord.OrderItems {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%d) %s\n", i+1, esc(item.TitleSnapshot))
		fmt.Fprintf(&b, "   %s: %s | %s: %d\n", l.size, item.SelectedSize, l.qty, item.Quantity)
		fmt.Fprintf(&b, "   %s: %d UZS | %s: %d UZS", l.price, item.PriceSnapshotUZS, l.line, item.LineTotal())
	}
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s: %d UZS\n", l.total, ord.SubtotalUZS)
	fmt.Fprintf(&b, "%s: DJ-%s\n", l.order, ord.ShortID())
	fmt.Fprintf(&b, "%s: %s", l.date, ord.CreatedAt.In(loc).Format("02.01.2006 15:04"))

	if username := strings.TrimPrefix(strings.TrimSpace(ord.Customer.TelegramUsername), "@"); username != "" {
		fmt.Fprintf(&b, "\n\n%s: @%s", l.customer, esc(username))
	}

	return b.String()
}

// photoFallbackText is sent as plain text when Telegram cannot fetch an image.
func photoFallbackText(locale order.Locale, imageURL string) string {
	return labelsFor(locale).photo + ": " + imageURL
}
