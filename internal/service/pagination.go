package service

import "math"

// Window — окно выборки одной страницы.
type Window struct {
	// TotalPages — ceil(count / size); 0 при пустой выборке
	TotalPages int
	// Offset — (page - 1) * size, при переполнении math.MaxInt
	Offset int
	// Limit — размер страницы
	Limit int
}

// Paginate вычисляет окно страницы page (с 1) размера size по общему количеству count.
// page < 1 трактуется как 1, size < 1 как 1.
func Paginate(count, page, size int) Window {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 1
	}
	if count < 0 {
		count = 0
	}

	total := count / size
	if count%size != 0 {
		total++
	}

	// Страница за пределами int всё равно пуста, смещение упирается в максимум.
	offset := math.MaxInt
	if page-1 <= math.MaxInt/size {
		offset = (page - 1) * size
	}

	return Window{
		TotalPages: total,
		Offset:     offset,
		Limit:      size,
	}
}
