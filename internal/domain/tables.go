package domain

var Tables = []interface{}{
	// System
	&SysUser{},
	&SysOprLog{},
	// Inventory
	&Product{},
	&Order{},
	&OrderItem{},
}
